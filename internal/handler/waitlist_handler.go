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

type waitlistService interface {
	Sections(ctx context.Context, instructorID string) ([]models.WaitlistSectionSummary, error)
	SectionView(ctx context.Context, sectionID string) (*service.WaitlistSectionView, error)
	PromoteNext(ctx context.Context, sectionID string) (*models.PromotionResult, error)
	Remove(ctx context.Context, sectionID, entryID string) error
}

// WaitlistHandler exposes instructor-facing waitlist management.
type WaitlistHandler struct {
	waitlists waitlistService
}

// NewWaitlistHandler constructs WaitlistHandler.
func NewWaitlistHandler(waitlists waitlistService) *WaitlistHandler {
	return &WaitlistHandler{waitlists: waitlists}
}

// List godoc
// @Summary List sections with waiting students
// @Tags Waitlists
// @Produce json
// @Param section_id query string false "Return one section with its ordered entries"
// @Success 200 {object} response.Envelope
// @Router /waitlists [get]
func (h *WaitlistHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if sectionID := c.Query("section_id"); sectionID != "" {
		view, err := h.waitlists.SectionView(c.Request.Context(), sectionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, view, nil)
		return
	}

	// Instructors see their own sections; admins see everything.
	instructorID := claims.UserID
	if claims.Role == models.RoleAdmin {
		instructorID = ""
	}
	summaries, err := h.waitlists.Sections(c.Request.Context(), instructorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summaries, nil)
}

// Act godoc
// @Summary Promote the next waiting student or remove an entry
// @Tags Waitlists
// @Accept json
// @Produce json
// @Param payload body service.WaitlistActionRequest true "Waitlist action"
// @Success 200 {object} response.Envelope
// @Router /waitlists [post]
func (h *WaitlistHandler) Act(c *gin.Context) {
	var req service.WaitlistActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	switch req.Action {
	case "promote_next":
		result, err := h.waitlists.PromoteNext(c.Request.Context(), req.SectionID)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, result, nil)
	case "remove_entry":
		if req.WaitlistID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "waitlist_id is required for remove_entry"))
			return
		}
		if err := h.waitlists.Remove(c.Request.Context(), req.SectionID, req.WaitlistID); err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, gin.H{"removed": true}, nil)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown waitlist action"))
	}
}
