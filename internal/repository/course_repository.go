package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

// CourseRepository reads course catalog rows and the program-scoped
// prerequisite graph.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, code, title, credits, level_rank, prerequisite_codes, department_id, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ProgramPrerequisites returns the formally modeled prerequisite edges for a
// course within one program, resolved to course code and title. This is the
// relational source; the free-text code list on the course row is checked
// separately and independently.
func (r *CourseRepository) ProgramPrerequisites(ctx context.Context, programID, courseID string) ([]models.PrerequisiteCourse, error) {
	const query = `SELECT c.id AS course_id, c.code, c.title
        FROM course_prerequisites cp
        JOIN courses c ON c.id = cp.prerequisite_course_id
        WHERE cp.course_id = $1 AND cp.program_id = $2
        ORDER BY c.code ASC`
	var prerequisites []models.PrerequisiteCourse
	if err := r.db.SelectContext(ctx, &prerequisites, query, courseID, programID); err != nil {
		return nil, fmt.Errorf("list program prerequisites: %w", err)
	}
	return prerequisites, nil
}
