package models

import "time"

// Student represents a learner registered in the institution. LevelRank is the
// ordering value of the student's current level (freshman=1, sophomore=2, ...);
// ProgramID is nil for students without an assigned study program.
type Student struct {
	ID           string    `db:"id" json:"id"`
	NIM          string    `db:"nim" json:"nim"`
	FullName     string    `db:"full_name" json:"full_name"`
	LevelRank    int       `db:"level_rank" json:"level_rank"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	ProgramID    *string   `db:"program_id" json:"program_id,omitempty"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
