package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. Only ENROLLED rows are created by this
// service; the terminal states are assigned by the gradebook flows.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// Enrollment binds one student to one course section for one term. A course
// counts as completed once FinalGrade is non-nil. At most one active
// enrollment may exist per (student, section, term) triple.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	TermID     string           `db:"term_id" json:"term_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	FinalGrade *string          `db:"final_grade" json:"final_grade,omitempty"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
}

// EnrollmentDetail enriches Enrollment with course and section info.
type EnrollmentDetail struct {
	Enrollment
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	Schedule    string `db:"schedule" json:"schedule"`
	Room        string `db:"room" json:"room"`
}

// OutcomeStatus classifies the terminal result of an enroll request.
type OutcomeStatus string

const (
	OutcomeEnrolled          OutcomeStatus = "ENROLLED"
	OutcomeWaitlisted        OutcomeStatus = "WAITLISTED"
	OutcomeAlreadyWaitlisted OutcomeStatus = "ALREADY_WAITLISTED"
)

// EnrollmentOutcome is the success-shaped response of POST /enroll. A full
// section is not an error: it routes to the waitlist and still lands here.
type EnrollmentOutcome struct {
	Status        OutcomeStatus  `json:"status"`
	Message       string         `json:"message"`
	Enrollment    *Enrollment    `json:"enrollment,omitempty"`
	WaitlistEntry *WaitlistEntry `json:"waitlist_entry,omitempty"`
}

// Rejection is a failed eligibility check. Code identifies the rule that
// fired; Message is rendered to the student as-is.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// EnrollmentOverview is the GET /enroll payload.
type EnrollmentOverview struct {
	Term        *Term              `json:"term"`
	Sections    []OpenSection      `json:"sections"`
	Enrollments []EnrollmentDetail `json:"enrollments"`
}
