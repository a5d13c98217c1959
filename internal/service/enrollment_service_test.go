package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-registrar-api/internal/models"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

type mockLedger struct {
	seatAvailable bool
	reserved      *models.Enrollment
	enrollments   []models.EnrollmentDetail
}

func (m *mockLedger) ExistsActive(ctx context.Context, studentID, sectionID, termID string) (bool, error) {
	return false, nil
}

func (m *mockLedger) EnrollIfSeatAvailable(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if !m.seatAvailable {
		return false, nil
	}
	enrollment.ID = "enr-new"
	m.reserved = enrollment
	return true, nil
}

func (m *mockLedger) ListActiveByStudent(ctx context.Context, studentID, termID string) ([]models.EnrollmentDetail, error) {
	return m.enrollments, nil
}

type mockWaitlists struct {
	created  bool
	existing *models.WaitlistEntry
	enqueued *models.WaitlistEntry
}

func (m *mockWaitlists) FindOpenEntry(ctx context.Context, studentID, sectionID string) (*models.WaitlistEntry, error) {
	return m.existing, nil
}

func (m *mockWaitlists) Enqueue(ctx context.Context, entry *models.WaitlistEntry) (bool, error) {
	if !m.created {
		return false, nil
	}
	entry.ID = "wl-new"
	entry.RequestedAt = time.Now()
	m.enqueued = entry
	return true, nil
}

type mockSections struct {
	detail  *models.SectionDetail
	catalog []models.OpenSection
}

func (m *mockSections) FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockSections) ListOpenByTerm(ctx context.Context, termID, departmentID string) ([]models.OpenSection, error) {
	return m.catalog, nil
}

type mockStudents struct {
	students map[string]*models.Student
}

func (m *mockStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockPeriods struct {
	term *models.Term
	err  error
}

func (m *mockPeriods) Current(ctx context.Context) (*models.Term, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.term, nil
}

type mockNotifier struct {
	confirmed        []string
	placed           []string
	alreadyWaitlisted []string
	promoted         []string
}

func (m *mockNotifier) EnrollmentConfirmed(studentID string, section *models.SectionDetail) {
	m.confirmed = append(m.confirmed, studentID)
}

func (m *mockNotifier) WaitlistPlaced(studentID string, section *models.SectionDetail) {
	m.placed = append(m.placed, studentID)
}

func (m *mockNotifier) AlreadyWaitlisted(studentID string, section *models.SectionDetail) {
	m.alreadyWaitlisted = append(m.alreadyWaitlisted, studentID)
}

func (m *mockNotifier) WaitlistPromoted(studentID, sectionID string) {
	m.promoted = append(m.promoted, studentID)
}

func enrollmentFixture() (*mockPeriods, *mockStudents, *mockSections) {
	student, section, term := eligibilityFixture()
	return &mockPeriods{term: term},
		&mockStudents{students: map[string]*models.Student{student.ID: student}},
		&mockSections{detail: section}
}

func newEnrollmentServiceForTest(ledger *mockLedger, waitlists *mockWaitlists, sections *mockSections, students *mockStudents, periods *mockPeriods, notifier *mockNotifier) *EnrollmentService {
	checker := NewEligibilityService(&mockCompletedReader{}, &mockPrereqReader{}, func() time.Time { return eligibilityNow }, zap.NewNop())
	return NewEnrollmentService(ledger, waitlists, sections, students, periods, checker, notifier, nil, nil, validator.New(), zap.NewNop())
}

func TestEnrollmentServiceEnrollTakesSeat(t *testing.T) {
	periods, students, sections := enrollmentFixture()
	ledger := &mockLedger{seatAvailable: true}
	notifier := &mockNotifier{}
	svc := newEnrollmentServiceForTest(ledger, &mockWaitlists{}, sections, students, periods, notifier)

	outcome, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeEnrolled, outcome.Status)
	require.NotNil(t, outcome.Enrollment)
	assert.Equal(t, "stu-1", outcome.Enrollment.StudentID)
	assert.Equal(t, "term-1", outcome.Enrollment.TermID)
	assert.Equal(t, []string{"stu-1"}, notifier.confirmed)
	assert.Empty(t, notifier.placed)
}

func TestEnrollmentServiceEnrollFullSectionWaitlists(t *testing.T) {
	periods, students, sections := enrollmentFixture()
	ledger := &mockLedger{seatAvailable: false}
	waitlists := &mockWaitlists{created: true}
	notifier := &mockNotifier{}
	svc := newEnrollmentServiceForTest(ledger, waitlists, sections, students, periods, notifier)

	outcome, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeWaitlisted, outcome.Status)
	require.NotNil(t, outcome.WaitlistEntry)
	assert.Equal(t, "stu-1", outcome.WaitlistEntry.StudentID)
	assert.Equal(t, []string{"stu-1"}, notifier.placed)
	assert.Empty(t, notifier.confirmed)
}

func TestEnrollmentServiceEnrollAlreadyWaitlisted(t *testing.T) {
	periods, students, sections := enrollmentFixture()
	existing := &models.WaitlistEntry{ID: "wl-1", StudentID: "stu-1", SectionID: "sec-1", RequestedAt: time.Now().Add(-time.Hour)}
	waitlists := &mockWaitlists{created: false, existing: existing}
	notifier := &mockNotifier{}
	svc := newEnrollmentServiceForTest(&mockLedger{}, waitlists, sections, students, periods, notifier)

	outcome, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAlreadyWaitlisted, outcome.Status)
	assert.Equal(t, "wl-1", outcome.WaitlistEntry.ID)
	assert.Equal(t, []string{"stu-1"}, notifier.alreadyWaitlisted)
	assert.Empty(t, notifier.placed)
}

func TestEnrollmentServiceEnrollRejectionIsTypedError(t *testing.T) {
	periods, students, sections := enrollmentFixture()
	level := 4
	sections.detail.CourseLevelRank = &level
	notifier := &mockNotifier{}
	svc := newEnrollmentServiceForTest(&mockLedger{seatAvailable: true}, &mockWaitlists{}, sections, students, periods, notifier)

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-1"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, RejectLevelMismatch, appErr.Code)
	assert.Equal(t, 422, appErr.Status)
	assert.Empty(t, notifier.confirmed)
	assert.Empty(t, notifier.placed)
}

func TestEnrollmentServiceEnrollClosedPeriod(t *testing.T) {
	_, students, sections := enrollmentFixture()
	periods := &mockPeriods{err: appErrors.ErrEnrollmentClosed}
	svc := newEnrollmentServiceForTest(&mockLedger{}, &mockWaitlists{}, sections, students, periods, &mockNotifier{})

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-1"})
	require.ErrorIs(t, err, appErrors.ErrEnrollmentClosed)
}

func TestEnrollmentServiceEnrollInactiveStudent(t *testing.T) {
	periods, students, sections := enrollmentFixture()
	students.students["stu-1"].Active = false
	svc := newEnrollmentServiceForTest(&mockLedger{}, &mockWaitlists{}, sections, students, periods, &mockNotifier{})

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-1"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestEnrollmentServiceEnrollMissingSection(t *testing.T) {
	periods, students, _ := enrollmentFixture()
	svc := newEnrollmentServiceForTest(&mockLedger{}, &mockWaitlists{}, &mockSections{}, students, periods, &mockNotifier{})

	_, err := svc.Enroll(context.Background(), "stu-1", EnrollRequest{SectionID: "sec-404"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestEnrollmentServiceOverview(t *testing.T) {
	periods, students, sections := enrollmentFixture()
	sections.catalog = []models.OpenSection{{ID: "sec-1", CourseCode: "CS201", SeatsLeft: 18}}
	ledger := &mockLedger{enrollments: []models.EnrollmentDetail{{CourseCode: "CS101"}}}
	svc := newEnrollmentServiceForTest(ledger, &mockWaitlists{}, sections, students, periods, &mockNotifier{})

	overview, err := svc.Overview(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "term-1", overview.Term.ID)
	require.Len(t, overview.Sections, 1)
	assert.Equal(t, 18, overview.Sections[0].SeatsLeft)
	require.Len(t, overview.Enrollments, 1)
}
