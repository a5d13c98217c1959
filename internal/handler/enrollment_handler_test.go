package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-registrar-api/internal/middleware"
	"github.com/noah-isme/uni-registrar-api/internal/models"
	"github.com/noah-isme/uni-registrar-api/internal/service"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
)

type enrollmentServiceMock struct {
	overview *models.EnrollmentOverview
	outcome  *models.EnrollmentOutcome
	err      error
}

func (m *enrollmentServiceMock) Overview(ctx context.Context, studentID string) (*models.EnrollmentOverview, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.overview, nil
}

func (m *enrollmentServiceMock) Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*models.EnrollmentOutcome, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.outcome, nil
}

func studentContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	return c, w
}

func TestEnrollmentHandlerEnrollCreated(t *testing.T) {
	svc := &enrollmentServiceMock{outcome: &models.EnrollmentOutcome{Status: models.OutcomeEnrolled}}
	handler := NewEnrollmentHandler(svc)
	body, _ := json.Marshal(service.EnrollRequest{SectionID: "sec-1"})
	c, w := studentContext(t, http.MethodPost, "/enroll", body)

	handler.Enroll(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestEnrollmentHandlerEnrollWaitlisted(t *testing.T) {
	svc := &enrollmentServiceMock{outcome: &models.EnrollmentOutcome{Status: models.OutcomeWaitlisted}}
	handler := NewEnrollmentHandler(svc)
	body, _ := json.Marshal(service.EnrollRequest{SectionID: "sec-1"})
	c, w := studentContext(t, http.MethodPost, "/enroll", body)

	handler.Enroll(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnrollmentHandlerEnrollRejection(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.New("LEVEL_MISMATCH", http.StatusUnprocessableEntity, "level mismatch")}
	handler := NewEnrollmentHandler(svc)
	body, _ := json.Marshal(service.EnrollRequest{SectionID: "sec-1"})
	c, w := studentContext(t, http.MethodPost, "/enroll", body)

	handler.Enroll(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEnrollmentHandlerEnrollInvalidBody(t *testing.T) {
	handler := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := studentContext(t, http.MethodPost, "/enroll", []byte(`invalid`))

	handler.Enroll(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentHandlerOverview(t *testing.T) {
	svc := &enrollmentServiceMock{overview: &models.EnrollmentOverview{Term: &models.Term{ID: "term-1"}}}
	handler := NewEnrollmentHandler(svc)
	c, w := studentContext(t, http.MethodGet, "/enroll", nil)

	handler.Overview(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnrollmentHandlerOverviewClosed(t *testing.T) {
	svc := &enrollmentServiceMock{err: appErrors.ErrEnrollmentClosed}
	handler := NewEnrollmentHandler(svc)
	c, w := studentContext(t, http.MethodGet, "/enroll", nil)

	handler.Overview(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}
