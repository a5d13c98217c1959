package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/models"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

type waitlistRepository interface {
	PromoteNext(ctx context.Context, sectionID string) (*models.PromotionResult, error)
	Remove(ctx context.Context, entryID, sectionID string) (bool, error)
	ListBySection(ctx context.Context, sectionID string) ([]models.WaitlistEntryDetail, error)
	ListSectionSummaries(ctx context.Context, instructorID string) ([]models.WaitlistSectionSummary, error)
}

type sectionDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

type promotionNotifier interface {
	WaitlistPromoted(studentID, sectionID string)
}

// WaitlistActionRequest is the POST /waitlists payload.
type WaitlistActionRequest struct {
	Action     string `json:"action" validate:"required,oneof=promote_next remove_entry"`
	SectionID  string `json:"section_id" validate:"required"`
	WaitlistID string `json:"waitlist_id" validate:"required_if=Action remove_entry"`
}

// WaitlistSectionView is a section's metadata plus its ordered queue, the
// instructor-facing detail of GET /waitlists.
type WaitlistSectionView struct {
	Section *models.SectionDetail        `json:"section"`
	Entries []models.WaitlistEntryDetail `json:"entries"`
}

// WaitlistService handles instructor-initiated waitlist management:
// promotion of the next student in line and removal of individual entries.
type WaitlistService struct {
	repo      waitlistRepository
	sections  sectionDetailReader
	notifier  promotionNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWaitlistService constructs WaitlistService.
func NewWaitlistService(repo waitlistRepository, sections sectionDetailReader, notifier promotionNotifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *WaitlistService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WaitlistService{repo: repo, sections: sections, notifier: notifier, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Sections lists sections with waiting students. instructorID narrows the
// view to one instructor's sections; empty means all (admin view).
func (s *WaitlistService) Sections(ctx context.Context, instructorID string) ([]models.WaitlistSectionSummary, error) {
	summaries, err := s.repo.ListSectionSummaries(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlists")
	}
	return summaries, nil
}

// SectionView returns one section and its queue in promotion order.
func (s *WaitlistService) SectionView(ctx context.Context, sectionID string) (*WaitlistSectionView, error) {
	section, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	entries, err := s.repo.ListBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waitlist entries")
	}
	return &WaitlistSectionView{Section: section, Entries: entries}, nil
}

// PromoteNext promotes the oldest waiting student into a free seat. The
// EmptyQueue and SectionFull outcomes are informational, not failures:
// promotion never overbooks and never invents a candidate.
func (s *WaitlistService) PromoteNext(ctx context.Context, sectionID string) (*models.PromotionResult, error) {
	result, err := s.repo.PromoteNext(ctx, sectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote from waitlist")
	}

	s.metrics.RecordOutcome("promotion_" + string(result.Status))
	if result.Status == models.PromotionPromoted {
		_ = s.cache.Invalidate(ctx, CatalogCacheKey(result.Enrollment.TermID, "*"))
		s.notifier.WaitlistPromoted(result.Entry.StudentID, sectionID)
		s.logger.Info("waitlist entry promoted",
			zap.String("section_id", sectionID),
			zap.String("student_id", result.Entry.StudentID),
			zap.String("entry_id", result.Entry.ID))
	}
	return result, nil
}

// Remove deletes one entry from a section's queue.
func (s *WaitlistService) Remove(ctx context.Context, sectionID, entryID string) error {
	removed, err := s.repo.Remove(ctx, entryID, sectionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove waitlist entry")
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrNotFound, "waitlist entry not found")
	}
	s.logger.Info("waitlist entry removed",
		zap.String("section_id", sectionID),
		zap.String("entry_id", entryID))
	return nil
}
