package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

// SectionRepository reads course sections and their course/term context.
// Seat-count mutations do not live here: the enrolled_count aggregate has a
// single writer path through the enrollment and waitlist repositories.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindByID returns a bare section row.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.CourseSection, error) {
	const query = `SELECT id, course_id, term_id, COALESCE(instructor_id::text, '') AS instructor_id, schedule, room, capacity, enrolled_count, registration_deadline, created_at, updated_at FROM course_sections WHERE id = $1`
	var section models.CourseSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// FindDetailByID returns a section joined to its course, term and instructor.
func (r *SectionRepository) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	const query = `SELECT s.id, s.course_id, s.term_id, COALESCE(s.instructor_id::text, '') AS instructor_id, s.schedule, s.room, s.capacity, s.enrolled_count, s.registration_deadline, s.created_at, s.updated_at,
        c.code AS course_code, c.title AS course_title, c.level_rank AS course_level_rank, c.prerequisite_codes,
        t.name AS term_name, t.academic_year, t.start_date AS term_start, t.end_date AS term_end,
        COALESCE(i.full_name, '') AS instructor_name
        FROM course_sections s
        JOIN courses c ON c.id = s.course_id
        JOIN terms t ON t.id = s.term_id
        LEFT JOIN instructors i ON i.id = s.instructor_id
        WHERE s.id = $1`
	var detail models.SectionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListOpenByTerm returns the catalog of sections a student of the given
// department can request for the term.
func (r *SectionRepository) ListOpenByTerm(ctx context.Context, termID, departmentID string) ([]models.OpenSection, error) {
	const query = `SELECT s.id, c.code AS course_code, c.title AS course_title, s.schedule, s.room,
        COALESCE(i.full_name, '') AS instructor_name, s.capacity, s.enrolled_count,
        GREATEST(s.capacity - s.enrolled_count, 0) AS seats_left
        FROM course_sections s
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN instructors i ON i.id = s.instructor_id
        WHERE s.term_id = $1 AND c.department_id = $2
        ORDER BY c.code ASC, s.schedule ASC`
	var sections []models.OpenSection
	if err := r.db.SelectContext(ctx, &sections, query, termID, departmentID); err != nil {
		return nil, fmt.Errorf("list open sections: %w", err)
	}
	return sections, nil
}

// CountActiveEnrollments derives the true number of active enrollments for a
// section, used to audit the enrolled_count aggregate against its source.
func (r *SectionRepository) CountActiveEnrollments(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1 AND status = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sectionID, models.EnrollmentStatusEnrolled); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return count, nil
}
