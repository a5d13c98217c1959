package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/models"
	"github.com/noah-isme/uni-registrar-api/pkg/config"
	"github.com/noah-isme/uni-registrar-api/pkg/jobs"
)

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// NotificationService informs students about enrollment outcomes through a
// background worker queue. Emission is strictly fire-and-forget: a failure to
// enqueue or deliver is logged and never surfaces to the enrollment flow.
type NotificationService struct {
	repo   notificationWriter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its worker queue.
func NewNotificationService(repo notificationWriter, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start begins worker consumption.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnrollmentConfirmed tells the student a seat is theirs.
func (s *NotificationService) EnrollmentConfirmed(studentID string, section *models.SectionDetail) {
	s.emit(studentID, section.ID, models.NotificationEnrollmentConfirmed,
		fmt.Sprintf("You are enrolled in %s %s (%s).", section.CourseCode, section.CourseTitle, section.Schedule))
}

// WaitlistPlaced tells the student they are queued for a full section.
func (s *NotificationService) WaitlistPlaced(studentID string, section *models.SectionDetail) {
	s.emit(studentID, section.ID, models.NotificationWaitlistPlaced,
		fmt.Sprintf("%s %s is full; you have been added to the waitlist.", section.CourseCode, section.CourseTitle))
}

// AlreadyWaitlisted reminds the student of an existing queue spot.
func (s *NotificationService) AlreadyWaitlisted(studentID string, section *models.SectionDetail) {
	s.emit(studentID, section.ID, models.NotificationWaitlistPlaced,
		fmt.Sprintf("You are already on the waitlist for %s %s.", section.CourseCode, section.CourseTitle))
}

// WaitlistPromoted tells the student a seat opened up and is now theirs.
func (s *NotificationService) WaitlistPromoted(studentID, sectionID string) {
	s.emit(studentID, sectionID, models.NotificationWaitlistPromoted,
		"A seat opened up and you have been enrolled from the waitlist.")
}

func (s *NotificationService) emit(studentID, sectionID string, kind models.NotificationKind, message string) {
	job := jobs.Job{
		Type: string(kind),
		Payload: &models.Notification{
			StudentID: studentID,
			SectionID: sectionID,
			Kind:      kind,
			Message:   message,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("notification dropped",
			zap.String("student_id", studentID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("type", job.Type))
		return nil
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}
	s.logger.Info("notification delivered",
		zap.String("student_id", notification.StudentID),
		zap.String("section_id", notification.SectionID),
		zap.String("kind", string(notification.Kind)))
	return nil
}
