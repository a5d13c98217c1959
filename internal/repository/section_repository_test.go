package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

func newSectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSectionRepositoryListOpenByTerm(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_code", "course_title", "schedule", "room", "instructor_name", "capacity", "enrolled_count", "seats_left"}).
		AddRow("sec-1", "CS101", "Intro to Computing", "Mon 08:00", "R101", "Dr. Sari", 30, 29, 1).
		AddRow("sec-2", "CS102", "Data Structures", "Tue 10:00", "R102", "Dr. Budi", 30, 30, 0)
	mock.ExpectQuery(regexp.QuoteMeta("GREATEST(s.capacity - s.enrolled_count, 0) AS seats_left")).
		WithArgs("term-1", "dept-cs").
		WillReturnRows(rows)

	sections, err := repo.ListOpenByTerm(context.Background(), "term-1", "dept-cs")
	require.NoError(t, err)
	require.Len(t, sections, 2)
	require.Equal(t, 1, sections[0].SeatsLeft)
	require.Equal(t, 0, sections[1].SeatsLeft)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	prereqs := "CS101, CS102"
	level := 2
	rows := sqlmock.NewRows([]string{
		"id", "course_id", "term_id", "instructor_id", "schedule", "room", "capacity", "enrolled_count", "registration_deadline", "created_at", "updated_at",
		"course_code", "course_title", "course_level_rank", "prerequisite_codes",
		"term_name", "academic_year", "term_start", "term_end", "instructor_name",
	}).AddRow("sec-1", "course-1", "term-1", "inst-1", "Mon 08:00", "R101", 30, 12, nil, now, now,
		"CS201", "Algorithms", level, prereqs,
		"Fall", "2026/2027", now, now.AddDate(0, 4, 0), "Dr. Sari")
	mock.ExpectQuery(regexp.QuoteMeta("LEFT JOIN instructors i ON i.id = s.instructor_id")).
		WithArgs("sec-1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, "CS201", detail.CourseCode)
	require.NotNil(t, detail.CourseLevelRank)
	require.Equal(t, 2, *detail.CourseLevelRank)
	require.Equal(t, "CS101, CS102", *detail.PrerequisiteCodes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryCountActiveEnrollments(t *testing.T) {
	db, mock, cleanup := newSectionRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2")).
		WithArgs("sec-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountActiveEnrollments(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, 12, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
