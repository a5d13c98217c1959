package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

func newWaitlistRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sectionRows(capacity, enrolled int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "course_id", "term_id", "instructor_id", "schedule", "room", "capacity", "enrolled_count", "registration_deadline", "created_at", "updated_at"}).
		AddRow("sec-1", "course-1", "term-1", "inst-1", "Mon 08:00", "R101", capacity, enrolled, nil, now, now)
}

func TestWaitlistRepositoryEnqueue(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	requestedAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	entry := &models.WaitlistEntry{ID: "wl-1", StudentID: "stu-1", SectionID: "sec-1", RequestedAt: requestedAt}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO waitlist_entries")).
		WithArgs("wl-1", "stu-1", "sec-1", requestedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := repo.Enqueue(context.Background(), entry)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryEnqueueIdempotent(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	// Second request hits the unique index and the insert is a no-op.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (student_id, section_id) DO NOTHING")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	created, err := repo.Enqueue(context.Background(), &models.WaitlistEntry{StudentID: "stu-1", SectionID: "sec-1"})
	require.NoError(t, err)
	require.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryPromoteNext(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	requestedAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sectionRows(30, 29))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY requested_at ASC, id ASC LIMIT 1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "section_id", "requested_at"}).
			AddRow("wl-1", "stu-9", "sec-1", requestedAt))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND term_id = $3 AND status = $4 LIMIT 1")).
		WithArgs("stu-9", "sec-1", "term-1", models.EnrollmentStatusEnrolled).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "stu-9", "sec-1", "term-1", models.EnrollmentStatusEnrolled, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_sections SET enrolled_count = enrolled_count + 1")).
		WithArgs("sec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1")).
		WithArgs("wl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.PromoteNext(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, models.PromotionPromoted, result.Status)
	require.Equal(t, "stu-9", result.Entry.StudentID)
	require.Equal(t, "stu-9", result.Enrollment.StudentID)
	require.Equal(t, "term-1", result.Enrollment.TermID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryPromoteNextSectionFull(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sectionRows(30, 30))
	mock.ExpectRollback()

	result, err := repo.PromoteNext(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, models.PromotionSectionFull, result.Status)
	require.Nil(t, result.Entry)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryPromoteNextEmptyQueue(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sectionRows(30, 12))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY requested_at ASC, id ASC LIMIT 1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	result, err := repo.PromoteNext(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, models.PromotionEmptyQueue, result.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryPromoteNextSkipsStaleEntry(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	requestedAt := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_sections WHERE id = $1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sectionRows(30, 29))
	// Oldest entry belongs to a student who already holds a seat; it is
	// dropped and the next entry is promoted instead.
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY requested_at ASC, id ASC LIMIT 1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "section_id", "requested_at"}).
			AddRow("wl-1", "stu-1", "sec-1", requestedAt))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1")).
		WithArgs("stu-1", "sec-1", "term-1", models.EnrollmentStatusEnrolled).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1")).
		WithArgs("wl-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY requested_at ASC, id ASC LIMIT 1 FOR UPDATE")).
		WithArgs("sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "section_id", "requested_at"}).
			AddRow("wl-2", "stu-2", "sec-1", requestedAt.Add(time.Minute)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE student_id = $1")).
		WithArgs("stu-2", "sec-1", "term-1", models.EnrollmentStatusEnrolled).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs(sqlmock.AnyArg(), "stu-2", "sec-1", "term-1", models.EnrollmentStatusEnrolled, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE course_sections SET enrolled_count = enrolled_count + 1")).
		WithArgs("sec-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1")).
		WithArgs("wl-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := repo.PromoteNext(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Equal(t, models.PromotionPromoted, result.Status)
	require.Equal(t, "wl-2", result.Entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryRemove(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1 AND section_id = $2")).
		WithArgs("wl-1", "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	removed, err := repo.Remove(context.Background(), "wl-1", "sec-1")
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryRemoveMissing(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM waitlist_entries WHERE id = $1 AND section_id = $2")).
		WithArgs("wl-404", "sec-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.Remove(context.Background(), "wl-404", "sec-1")
	require.NoError(t, err)
	require.False(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitlistRepositoryListBySection(t *testing.T) {
	db, mock, cleanup := newWaitlistRepoMock(t)
	defer cleanup()
	repo := NewWaitlistRepository(db)

	base := time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "section_id", "requested_at", "student_name", "student_nim"}).
		AddRow("wl-1", "stu-1", "sec-1", base, "Ana", "2301").
		AddRow("wl-2", "stu-2", "sec-1", base.Add(time.Minute), "Ben", "2302")
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY w.requested_at ASC, w.id ASC")).
		WithArgs("sec-1").
		WillReturnRows(rows)

	entries, err := repo.ListBySection(context.Background(), "sec-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 1, entries[0].Position)
	require.Equal(t, 2, entries[1].Position)
	require.NoError(t, mock.ExpectationsWereMet())
}
