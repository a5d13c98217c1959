package models

import "time"

// Term models one academic period: a semester within an academic year.
// At most one term carries the is_current flag; that flag alone decides which
// period enrollment actions run against.
type Term struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	IsCurrent    bool      `db:"is_current" json:"is_current"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	AcademicYear string
	IsCurrent    *bool
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
