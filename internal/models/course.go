package models

import "time"

// Course is a catalog entry. PrerequisiteCodes is the legacy free-text
// comma-separated list of required course codes; the program-scoped
// prerequisite graph in course_prerequisites is the second, independent
// source. The two sources may disagree and are checked separately.
type Course struct {
	ID                string    `db:"id" json:"id"`
	Code              string    `db:"code" json:"code"`
	Title             string    `db:"title" json:"title"`
	Credits           int       `db:"credits" json:"credits"`
	LevelRank         *int      `db:"level_rank" json:"level_rank,omitempty"`
	PrerequisiteCodes *string   `db:"prerequisite_codes" json:"prerequisite_codes,omitempty"`
	DepartmentID      string    `db:"department_id" json:"department_id"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// PrerequisiteCourse is one edge of the program-scoped prerequisite graph,
// resolved to the course it points at.
type PrerequisiteCourse struct {
	CourseID string `db:"course_id" json:"course_id"`
	Code     string `db:"code" json:"code"`
	Title    string `db:"title" json:"title"`
}
