package models

import "time"

// CourseSection is one scheduled offering of a course within a term.
// EnrolledCount is a cached aggregate of active enrollments; it is only ever
// mutated through guarded updates in the enrollment and waitlist repositories
// and must never exceed Capacity.
type CourseSection struct {
	ID                   string     `db:"id" json:"id"`
	CourseID             string     `db:"course_id" json:"course_id"`
	TermID               string     `db:"term_id" json:"term_id"`
	InstructorID         string     `db:"instructor_id" json:"instructor_id"`
	Schedule             string     `db:"schedule" json:"schedule"`
	Room                 string     `db:"room" json:"room"`
	Capacity             int        `db:"capacity" json:"capacity"`
	EnrolledCount        int        `db:"enrolled_count" json:"enrolled_count"`
	RegistrationDeadline *time.Time `db:"registration_deadline" json:"registration_deadline,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// SectionDetail enriches CourseSection with its course and term context, the
// view the eligibility checks and the enrollment flow run against.
type SectionDetail struct {
	CourseSection
	CourseCode        string    `db:"course_code" json:"course_code"`
	CourseTitle       string    `db:"course_title" json:"course_title"`
	CourseLevelRank   *int      `db:"course_level_rank" json:"course_level_rank,omitempty"`
	PrerequisiteCodes *string   `db:"prerequisite_codes" json:"prerequisite_codes,omitempty"`
	TermName          string    `db:"term_name" json:"term_name"`
	AcademicYear      string    `db:"academic_year" json:"academic_year"`
	TermStart         time.Time `db:"term_start" json:"term_start"`
	TermEnd           time.Time `db:"term_end" json:"term_end"`
	InstructorName    string    `db:"instructor_name" json:"instructor_name"`
}

// EffectiveDeadline is the last day of registration: the section override when
// set, the term end date otherwise.
func (s *SectionDetail) EffectiveDeadline() time.Time {
	if s.RegistrationDeadline != nil {
		return *s.RegistrationDeadline
	}
	return s.TermEnd
}

// OpenSection is the catalog row served to students on the enrollment page.
type OpenSection struct {
	ID             string `db:"id" json:"id"`
	CourseCode     string `db:"course_code" json:"course_code"`
	CourseTitle    string `db:"course_title" json:"course_title"`
	Schedule       string `db:"schedule" json:"schedule"`
	Room           string `db:"room" json:"room"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
	Capacity       int    `db:"capacity" json:"capacity"`
	EnrolledCount  int    `db:"enrolled_count" json:"enrolled_count"`
	SeatsLeft      int    `db:"seats_left" json:"seats_left"`
}
