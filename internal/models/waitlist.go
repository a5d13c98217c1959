package models

import "time"

// WaitlistEntry is one open spot in a section's waiting queue. Promotion
// order is (RequestedAt ASC, ID ASC); the id tiebreak keeps the order total
// when two requests land within the same second.
type WaitlistEntry struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	RequestedAt time.Time `db:"requested_at" json:"requested_at"`
}

// WaitlistEntryDetail adds student context and the computed queue position.
type WaitlistEntryDetail struct {
	WaitlistEntry
	StudentName string `db:"student_name" json:"student_name"`
	StudentNIM  string `db:"student_nim" json:"student_nim"`
	Position    int    `db:"-" json:"position"`
}

// WaitlistSectionSummary is one row of the instructor waitlist overview.
type WaitlistSectionSummary struct {
	SectionID     string `db:"section_id" json:"section_id"`
	CourseCode    string `db:"course_code" json:"course_code"`
	CourseTitle   string `db:"course_title" json:"course_title"`
	Schedule      string `db:"schedule" json:"schedule"`
	Capacity      int    `db:"capacity" json:"capacity"`
	EnrolledCount int    `db:"enrolled_count" json:"enrolled_count"`
	WaitingCount  int    `db:"waiting_count" json:"waiting_count"`
}

// PromotionStatus classifies the result of a promote-next request.
type PromotionStatus string

const (
	PromotionPromoted    PromotionStatus = "PROMOTED"
	PromotionEmptyQueue  PromotionStatus = "EMPTY_QUEUE"
	PromotionSectionFull PromotionStatus = "SECTION_FULL"
)

// PromotionResult reports what a promote-next attempt did. EmptyQueue and
// SectionFull are informational outcomes, not errors.
type PromotionResult struct {
	Status     PromotionStatus `json:"status"`
	Entry      *WaitlistEntry  `json:"entry,omitempty"`
	Enrollment *Enrollment     `json:"enrollment,omitempty"`
}
