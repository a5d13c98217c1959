package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/models"
)

// Rejection codes produced by the eligibility checks. Each code maps to one
// rule so the student always knows which obstacle to clear.
const (
	RejectTermMismatch    = "TERM_MISMATCH"
	RejectNotYetOpen      = "ENROLLMENT_NOT_OPEN"
	RejectWindowClosed    = "ENROLLMENT_WINDOW_CLOSED"
	RejectAlreadyEnrolled = "ALREADY_ENROLLED"
	RejectLevelMismatch   = "LEVEL_MISMATCH"
	RejectMissingCourses  = "MISSING_PREREQUISITES"
	RejectProgramCourses  = "MISSING_PROGRAM_PREREQUISITES"
)

type completedCourseReader interface {
	ExistsActive(ctx context.Context, studentID, sectionID, termID string) (bool, error)
	CompletedCourseCodes(ctx context.Context, studentID string) (map[string]struct{}, error)
	CompletedCourseIDs(ctx context.Context, studentID string) (map[string]struct{}, error)
}

type prerequisiteReader interface {
	ProgramPrerequisites(ctx context.Context, programID, courseID string) ([]models.PrerequisiteCourse, error)
}

// EligibilityService validates a student against a target section. All checks
// are pure reads; nothing is mutated here. Checks run in a fixed order and
// stop at the first failure because each failure carries its own user-facing
// message.
type EligibilityService struct {
	enrollments completedCourseReader
	courses     prerequisiteReader
	now         func() time.Time
	logger      *zap.Logger
}

// NewEligibilityService constructs EligibilityService. now defaults to UTC
// wall clock and exists so the window checks are testable.
func NewEligibilityService(enrollments completedCourseReader, courses prerequisiteReader, now func() time.Time, logger *zap.Logger) *EligibilityService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{enrollments: enrollments, courses: courses, now: now, logger: logger}
}

// Check returns nil when the student may take a seat in the section, a
// Rejection describing the first violated rule otherwise. The error return is
// reserved for infrastructure faults.
func (s *EligibilityService) Check(ctx context.Context, student *models.Student, section *models.SectionDetail, term *models.Term) (*models.Rejection, error) {
	if section.TermID != term.ID {
		return &models.Rejection{Code: RejectTermMismatch, Message: "section does not belong to the current term"}, nil
	}

	today := s.now()
	if today.Before(section.TermStart) {
		return &models.Rejection{
			Code:    RejectNotYetOpen,
			Message: fmt.Sprintf("enrollment has not opened yet, registration starts %s", section.TermStart.Format("2006-01-02")),
		}, nil
	}
	deadline := section.EffectiveDeadline()
	if today.After(deadline) {
		return &models.Rejection{
			Code:    RejectWindowClosed,
			Message: fmt.Sprintf("enrollment closed, the registration deadline was %s", deadline.Format("2006-01-02")),
		}, nil
	}

	enrolled, err := s.enrollments.ExistsActive(ctx, student.ID, section.ID, term.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return &models.Rejection{Code: RejectAlreadyEnrolled, Message: "you are already enrolled in this section"}, nil
	}

	// Exact level equality is deliberate: the catalog pins each course to one
	// level and a mismatch in either direction is rejected.
	if section.CourseLevelRank != nil && student.LevelRank != *section.CourseLevelRank {
		return &models.Rejection{
			Code:    RejectLevelMismatch,
			Message: fmt.Sprintf("%s is offered at level %d, your current level is %d", section.CourseCode, *section.CourseLevelRank, student.LevelRank),
		}, nil
	}

	if rejection, err := s.checkCodeList(ctx, student, section); err != nil || rejection != nil {
		return rejection, err
	}

	return s.checkProgramGraph(ctx, student, section)
}

// checkCodeList enforces the legacy free-text prerequisite list on the course
// row. Codes match case-insensitively against the student's completed-course
// codes; every missing code is reported in one message.
func (s *EligibilityService) checkCodeList(ctx context.Context, student *models.Student, section *models.SectionDetail) (*models.Rejection, error) {
	if section.PrerequisiteCodes == nil || strings.TrimSpace(*section.PrerequisiteCodes) == "" {
		return nil, nil
	}

	completed, err := s.enrollments.CompletedCourseCodes(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, raw := range strings.Split(*section.PrerequisiteCodes, ",") {
		code := strings.TrimSpace(raw)
		if code == "" {
			continue
		}
		if _, ok := completed[strings.ToLower(code)]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return &models.Rejection{
			Code:    RejectMissingCourses,
			Message: fmt.Sprintf("missing prerequisite courses: %s", strings.Join(missing, ", ")),
		}, nil
	}
	return nil, nil
}

// checkProgramGraph enforces the relational prerequisite edges scoped to the
// student's program. It is intentionally independent of the free-text list:
// the two sources may disagree and both must pass.
func (s *EligibilityService) checkProgramGraph(ctx context.Context, student *models.Student, section *models.SectionDetail) (*models.Rejection, error) {
	if student.ProgramID == nil {
		return nil, nil
	}

	prerequisites, err := s.courses.ProgramPrerequisites(ctx, *student.ProgramID, section.CourseID)
	if err != nil {
		return nil, err
	}
	if len(prerequisites) == 0 {
		return nil, nil
	}

	completedIDs, err := s.enrollments.CompletedCourseIDs(ctx, student.ID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, prerequisite := range prerequisites {
		if _, ok := completedIDs[prerequisite.CourseID]; !ok {
			missing = append(missing, prerequisite.Code)
		}
	}
	if len(missing) > 0 {
		return &models.Rejection{
			Code:    RejectProgramCourses,
			Message: fmt.Sprintf("your program requires completing these courses first: %s", strings.Join(missing, ", ")),
		}, nil
	}
	return nil, nil
}
