package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/models"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

type enrollmentLedger interface {
	ExistsActive(ctx context.Context, studentID, sectionID, termID string) (bool, error)
	EnrollIfSeatAvailable(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error)
}

type waitlistEnqueuer interface {
	FindOpenEntry(ctx context.Context, studentID, sectionID string) (*models.WaitlistEntry, error)
	Enqueue(ctx context.Context, entry *models.WaitlistEntry) (bool, error)
}

type sectionReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ListOpenByTerm(ctx context.Context, termID, departmentID string) ([]models.OpenSection, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type periodResolver interface {
	Current(ctx context.Context) (*models.Term, error)
}

type enrollmentNotifier interface {
	EnrollmentConfirmed(studentID string, section *models.SectionDetail)
	WaitlistPlaced(studentID string, section *models.SectionDetail)
	AlreadyWaitlisted(studentID string, section *models.SectionDetail)
}

// EnrollRequest is the POST /enroll payload.
type EnrollRequest struct {
	SectionID string `json:"section_id" validate:"required"`
}

// EnrollmentService orchestrates the student-facing enroll flow: resolve the
// current period, check eligibility, then either take a seat through the
// ledger or fall through to the waitlist. Capacity exhaustion is a routing
// decision here, never an error.
type EnrollmentService struct {
	ledger    enrollmentLedger
	waitlists waitlistEnqueuer
	sections  sectionReader
	students  studentReader
	periods   periodResolver
	checker   *EligibilityService
	notifier  enrollmentNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(ledger enrollmentLedger, waitlists waitlistEnqueuer, sections sectionReader, students studentReader, periods periodResolver, checker *EligibilityService, notifier enrollmentNotifier, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		ledger:    ledger,
		waitlists: waitlists,
		sections:  sections,
		students:  students,
		periods:   periods,
		checker:   checker,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// CatalogCacheKey builds the cache key of the open-section catalog for a term
// and department.
func CatalogCacheKey(termID, departmentID string) string {
	return fmt.Sprintf("catalog:%s:%s", termID, departmentID)
}

// Overview assembles the GET /enroll payload: the current period, the open
// sections for the student's department, and the student's active
// enrollments. The section catalog is served from cache when warm.
func (s *EnrollmentService) Overview(ctx context.Context, studentID string) (*models.EnrollmentOverview, error) {
	term, err := s.periods.Current(ctx)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	var sections []models.OpenSection
	cacheKey := CatalogCacheKey(term.ID, student.DepartmentID)
	hit, _ := s.cache.Get(ctx, cacheKey, &sections)
	if !hit {
		sections, err = s.sections.ListOpenByTerm(ctx, term.ID, student.DepartmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
		}
		_ = s.cache.Set(ctx, cacheKey, sections, 0)
	}

	enrollments, err := s.ledger.ListActiveByStudent(ctx, studentID, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	return &models.EnrollmentOverview{Term: term, Sections: sections, Enrollments: enrollments}, nil
}

// Enroll runs the full enrollment decision for one student and section.
// Terminal outcomes are success-shaped (Enrolled, Waitlisted,
// AlreadyWaitlisted); eligibility rejections come back as typed errors whose
// message renders directly to the student. Exactly one notification is
// emitted per terminal outcome, and a notification failure never rolls the
// outcome back.
func (s *EnrollmentService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*models.EnrollmentOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	term, err := s.periods.Current(ctx)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student record is inactive")
	}

	section, err := s.sections.FindDetailByID(ctx, req.SectionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	rejection, err := s.checker.Check(ctx, student, section, term)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check eligibility")
	}
	if rejection != nil {
		s.metrics.RecordOutcome("rejected")
		return nil, appErrors.New(rejection.Code, http.StatusUnprocessableEntity, rejection.Message)
	}

	enrollment := &models.Enrollment{StudentID: studentID, SectionID: section.ID, TermID: term.ID}
	reserved, err := s.ledger.EnrollIfSeatAvailable(ctx, enrollment)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll")
	}
	if reserved {
		s.invalidateCatalog(ctx, term.ID, student.DepartmentID)
		s.metrics.RecordOutcome("enrolled")
		s.notifier.EnrollmentConfirmed(studentID, section)
		s.logger.Info("student enrolled",
			zap.String("student_id", studentID),
			zap.String("section_id", section.ID),
			zap.String("term_id", term.ID))
		return &models.EnrollmentOutcome{
			Status:     models.OutcomeEnrolled,
			Message:    fmt.Sprintf("You are enrolled in %s %s.", section.CourseCode, section.CourseTitle),
			Enrollment: enrollment,
		}, nil
	}

	// No seat left: route to the waitlist. A repeated request is benign and
	// comes back as the existing entry.
	entry := &models.WaitlistEntry{StudentID: studentID, SectionID: section.ID}
	created, err := s.waitlists.Enqueue(ctx, entry)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join waitlist")
	}
	if !created {
		existing, err := s.waitlists.FindOpenEntry(ctx, studentID, section.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load waitlist entry")
		}
		s.metrics.RecordOutcome("already_waitlisted")
		s.notifier.AlreadyWaitlisted(studentID, section)
		return &models.EnrollmentOutcome{
			Status:        models.OutcomeAlreadyWaitlisted,
			Message:       fmt.Sprintf("You are already on the waitlist for %s %s.", section.CourseCode, section.CourseTitle),
			WaitlistEntry: existing,
		}, nil
	}

	s.metrics.RecordOutcome("waitlisted")
	s.notifier.WaitlistPlaced(studentID, section)
	s.logger.Info("student waitlisted",
		zap.String("student_id", studentID),
		zap.String("section_id", section.ID))
	return &models.EnrollmentOutcome{
		Status:        models.OutcomeWaitlisted,
		Message:       fmt.Sprintf("%s %s is full; you were added to the waitlist.", section.CourseCode, section.CourseTitle),
		WaitlistEntry: entry,
	}, nil
}

func (s *EnrollmentService) invalidateCatalog(ctx context.Context, termID, departmentID string) {
	if err := s.cache.Invalidate(ctx, CatalogCacheKey(termID, "*")); err != nil {
		s.logger.Warn("catalog invalidation failed",
			zap.String("term_id", termID),
			zap.String("department_id", departmentID),
			zap.Error(err))
	}
}
