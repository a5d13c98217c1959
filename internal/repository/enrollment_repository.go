package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

// EnrollmentRepository is the authoritative ledger of enrollments. It owns
// every write to the course_sections.enrolled_count aggregate on the
// enrollment path, always through a guarded conditional update so the counter
// can never pass capacity.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ExistsActive checks if an active enrollment exists for the triple.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, sectionID, termID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 AND term_id = $3 AND status = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, sectionID, termID, models.EnrollmentStatusEnrolled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// EnrollIfSeatAvailable reserves a seat and records the enrollment as one
// transaction. The guarded increment serialises concurrent attempts on the
// last seat: whoever loses the conditional update gets reserved=false and is
// routed to the waitlist by the caller. A full section is an outcome here,
// never an error.
func (r *EnrollmentRepository) EnrollIfSeatAvailable(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusEnrolled
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin enroll tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE course_sections SET enrolled_count = enrolled_count + 1, updated_at = $2 WHERE id = $1 AND enrolled_count < capacity`, enrollment.SectionID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reserve seat: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reserve seat result: %w", err)
	}
	if affected == 0 {
		if err = tx.Rollback(); err != nil {
			return false, fmt.Errorf("rollback full section: %w", err)
		}
		return false, nil
	}

	if _, err = tx.NamedExecContext(ctx, `INSERT INTO enrollments (id, student_id, section_id, term_id, status, final_grade, enrolled_at)
        VALUES (:id, :student_id, :section_id, :term_id, :status, :final_grade, :enrolled_at)`, enrollment); err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit enroll tx: %w", err)
	}
	return true, nil
}

// ListActiveByStudent returns a student's active enrollments for a term.
func (r *EnrollmentRepository) ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.section_id, e.term_id, e.status, e.final_grade, e.enrolled_at,
        c.code AS course_code, c.title AS course_title, s.schedule, s.room
        FROM enrollments e
        JOIN course_sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1 AND e.term_id = $2 AND e.status = $3
        ORDER BY c.code ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID, termID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// HasCompletedCourse reports whether the student holds a graded enrollment
// for the course, in any term.
func (r *EnrollmentRepository) HasCompletedCourse(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments e
        JOIN course_sections s ON s.id = e.section_id
        WHERE e.student_id = $1 AND s.course_id = $2 AND e.final_grade IS NOT NULL
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check completed course: %w", err)
	}
	return true, nil
}

// CompletedCourseCodes returns the lowercased codes of every course the
// student has completed. Free-text prerequisite lists are matched against
// this set case-insensitively.
func (r *EnrollmentRepository) CompletedCourseCodes(ctx context.Context, studentID string) (map[string]struct{}, error) {
	const query = `SELECT DISTINCT LOWER(c.code) FROM enrollments e
        JOIN course_sections s ON s.id = e.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE e.student_id = $1 AND e.final_grade IS NOT NULL`
	return r.selectSet(ctx, query, studentID)
}

// CompletedCourseIDs returns the IDs of every course the student has
// completed, used by the program-graph prerequisite check.
func (r *EnrollmentRepository) CompletedCourseIDs(ctx context.Context, studentID string) (map[string]struct{}, error) {
	const query = `SELECT DISTINCT s.course_id FROM enrollments e
        JOIN course_sections s ON s.id = e.section_id
        WHERE e.student_id = $1 AND e.final_grade IS NOT NULL`
	return r.selectSet(ctx, query, studentID)
}

func (r *EnrollmentRepository) selectSet(ctx context.Context, query string, args ...interface{}) (map[string]struct{}, error) {
	var values []string
	if err := r.db.SelectContext(ctx, &values, query, args...); err != nil {
		return nil, fmt.Errorf("select completed set: %w", err)
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = struct{}{}
	}
	return set, nil
}
