package campaigns

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caretrack/referral-platform/pkg/common"
)

// Handler handles HTTP requests for campaign administration
type Handler struct {
	service *Service
}

// NewHandler creates a new campaign handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateCampaign creates a new campaign
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.service.CreateCampaign(c.Request.Context(), &req)
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	common.CreatedResponse(c, campaign)
}

// UpdateCampaign edits an existing campaign
func (h *Handler) UpdateCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}

	var req UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	campaign, err := h.service.UpdateCampaign(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "campaign not found")
			return
		}
		common.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	common.SuccessResponse(c, campaign)
}

// GetCampaign returns a campaign by ID
func (h *Handler) GetCampaign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid campaign id")
		return
	}

	campaign, err := h.service.GetCampaign(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "campaign not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get campaign")
		return
	}

	common.SuccessResponse(c, campaign)
}

// ListCampaigns lists campaigns
func (h *Handler) ListCampaigns(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	campaigns, err := h.service.ListCampaigns(c.Request.Context(), activeOnly, limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list campaigns")
		return
	}

	common.SuccessResponse(c, campaigns)
}

// RegisterRoutes registers campaign admin routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	camp := rg.Group("/campaigns")
	{
		camp.POST("", h.CreateCampaign)
		camp.GET("", h.ListCampaigns)
		camp.GET("/:id", h.GetCampaign)
		camp.PATCH("/:id", h.UpdateCampaign)
	}
}
