package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uni-registrar-api/internal/models"
	"github.com/noah-isme/uni-registrar-api/internal/service"
	appErrors "github.com/noah-isme/uni-registrar-api/pkg/errors"
	"github.com/noah-isme/uni-registrar-api/pkg/response"
)

type enrollmentService interface {
	Overview(ctx context.Context, studentID string) (*models.EnrollmentOverview, error)
	Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*models.EnrollmentOutcome, error)
}

// EnrollmentHandler exposes the student enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Overview godoc
// @Summary Enrollment overview for the current student
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /enroll [get]
func (h *EnrollmentHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	overview, err := h.enrollments.Overview(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

// Enroll godoc
// @Summary Request a seat in a course section
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Router /enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.enrollments.Enroll(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if outcome.Status == models.OutcomeEnrolled {
		status = http.StatusCreated
	}
	response.JSON(c, status, outcome, nil)
}
