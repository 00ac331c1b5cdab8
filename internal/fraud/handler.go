package fraud

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caretrack/referral-platform/internal/signals"
	"github.com/caretrack/referral-platform/pkg/common"
)

// Handler handles HTTP requests for fraud evaluation and review
type Handler struct {
	controller *Controller
}

// NewHandler creates a new fraud handler
func NewHandler(controller *Controller) *Handler {
	return &Handler{controller: controller}
}

// Evaluate runs a fraud evaluation for a registration or login attempt.
// Called by the auth flow; the response never includes the score.
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	source := signals.SignalSource(req.Source)
	if source == "" {
		source = signals.SourceRegistration
	}

	isPaused, err := h.controller.EvaluateAndApply(c.Request.Context(), req.UserID, req.IPAddress, req.Email, req.DeviceFingerprint, source)
	if err != nil {
		// Fail closed: the caller should retry, never proceed on score 0
		common.ErrorResponse(c, http.StatusServiceUnavailable, "fraud evaluation unavailable")
		return
	}

	resp := EvaluateResponse{IsPaused: isPaused}
	if isPaused {
		resp.Message = PausedMessage
	}

	common.SuccessResponse(c, resp)
}

// GetSubjectScore returns the current score record for a subject (admin only)
func (h *Handler) GetSubjectScore(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid subject id")
		return
	}

	record, err := h.controller.CurrentScore(c.Request.Context(), subjectID)
	if err != nil {
		if errors.Is(err, ErrScoreNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "subject has no fraud score")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get fraud score")
		return
	}

	common.SuccessResponse(c, record)
}

// GetSubjectHistory returns the score history for a subject (admin only)
func (h *Handler) GetSubjectHistory(c *gin.Context) {
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid subject id")
		return
	}

	limit, offset := paginationParams(c)

	records, err := h.controller.ScoreHistory(c.Request.Context(), subjectID, limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get score history")
		return
	}

	common.SuccessResponse(c, records)
}

// ListPaused returns currently paused subjects (admin only)
func (h *Handler) ListPaused(c *gin.Context) {
	limit, offset := paginationParams(c)

	records, err := h.controller.PausedSubjects(c.Request.Context(), limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list paused subjects")
		return
	}

	common.SuccessResponse(c, records)
}

// RegisterRoutes registers fraud routes. The evaluate endpoint is internal
// (service-to-service); review endpoints require admin.
func (h *Handler) RegisterRoutes(internalGroup, adminGroup *gin.RouterGroup) {
	internalGroup.POST("/fraud/evaluate", h.Evaluate)

	adminGroup.GET("/fraud/subjects/:id", h.GetSubjectScore)
	adminGroup.GET("/fraud/subjects/:id/history", h.GetSubjectHistory)
	adminGroup.GET("/fraud/paused", h.ListPaused)
}

func paginationParams(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
