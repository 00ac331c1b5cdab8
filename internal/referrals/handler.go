package referrals

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caretrack/referral-platform/pkg/common"
)

// Handler handles HTTP requests for referral codes and events
type Handler struct {
	service  *Service
	registry *Registry
}

// NewHandler creates a new referrals handler
func NewHandler(service *Service, registry *Registry) *Handler {
	return &Handler{service: service, registry: registry}
}

// GetOrCreateCode returns the advocate's referral code for a campaign,
// creating it on first request
func (h *Handler) GetOrCreateCode(c *gin.Context) {
	var req GetOrCreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	code, err := h.registry.GetOrCreateCode(c.Request.Context(), req.CampaignID, req.AdvocateID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get referral code")
		return
	}

	common.SuccessResponse(c, code)
}

// ResolveLink resolves a shareable referral link slug. Public endpoint;
// only non-sensitive fields are returned.
func (h *Handler) ResolveLink(c *gin.Context) {
	code, err := h.registry.ResolveSlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "referral link not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to resolve referral link")
		return
	}

	common.SuccessResponse(c, CodeResponse{
		CampaignID: code.CampaignID,
		Code:       code.Code,
		LinkSlug:   code.LinkSlug,
	})
}

// RecordEvent records a referral lifecycle event
func (h *Handler) RecordEvent(c *gin.Context) {
	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	event, check, err := h.service.RecordEvent(
		c.Request.Context(),
		req.CodeID,
		req.ReferredPatientID,
		EventStatus(req.Status),
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		if errors.Is(err, ErrInvalidEventStatus) || errors.Is(err, ErrPatientRequired) {
			common.ErrorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrCodeNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "referral code not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to record referral event")
		return
	}

	common.CreatedResponse(c, RecordEventResponse{Event: event, FraudCheck: check})
}

// AppointmentCompleted handles the conversion webhook. The referral event
// is converted when one is tracked; otherwise the call is a no-op.
func (h *Handler) AppointmentCompleted(c *gin.Context) {
	var req AppointmentCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.service.ConvertForPatient(c.Request.Context(), req.PatientID)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to process conversion")
		return
	}

	common.SuccessResponse(c, gin.H{
		"converted": event != nil,
	})
}

// RegisterRoutes registers referral routes across the public, internal and
// webhook route groups
func (h *Handler) RegisterRoutes(public, internalGroup, webhooks *gin.RouterGroup) {
	public.GET("/r/:slug", h.ResolveLink)

	internalGroup.POST("/referrals/codes", h.GetOrCreateCode)
	internalGroup.POST("/referrals/events", h.RecordEvent)

	webhooks.POST("/appointments/completed", h.AppointmentCompleted)
}
