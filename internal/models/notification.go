package models

import "time"

// NotificationKind labels what a notification informs the student about.
type NotificationKind string

const (
	NotificationEnrollmentConfirmed NotificationKind = "ENROLLMENT_CONFIRMED"
	NotificationWaitlistPlaced      NotificationKind = "WAITLIST_PLACED"
	NotificationWaitlistPromoted    NotificationKind = "WAITLIST_PROMOTED"
)

// Notification is a best-effort message to a student about an enrollment
// outcome. Delivery is fire-and-forget and never part of the transactional
// enrollment state.
type Notification struct {
	ID        string           `db:"id" json:"id"`
	StudentID string           `db:"student_id" json:"student_id"`
	SectionID string           `db:"section_id" json:"section_id"`
	Kind      NotificationKind `db:"kind" json:"kind"`
	Message   string           `db:"message" json:"message"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
