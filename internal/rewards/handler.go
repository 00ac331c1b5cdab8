package rewards

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caretrack/referral-platform/pkg/common"
)

// Handler exposes the reward admin surface
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// GetReward handles GET /rewards/:id
func (h *Handler) GetReward(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid reward id")
		return
	}

	reward, err := h.engine.GetReward(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRewardNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "reward not found")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to get reward")
		return
	}

	common.SuccessResponse(c, reward)
}

// ListAdvocateRewards handles GET /advocates/:id/rewards
func (h *Handler) ListAdvocateRewards(c *gin.Context) {
	advocateID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid advocate id")
		return
	}

	limit, offset := listParams(c)
	rewards, err := h.engine.ListAdvocateRewards(c.Request.Context(), advocateID, limit, offset)
	if err != nil {
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to list rewards")
		return
	}

	common.SuccessResponse(c, rewards)
}

// FulfillReward handles POST /rewards/:id/fulfill
func (h *Handler) FulfillReward(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid reward id")
		return
	}

	reward, err := h.engine.FulfillReward(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrRewardNotFound) {
			common.ErrorResponse(c, http.StatusNotFound, "no pending reward with that id")
			return
		}
		common.ErrorResponse(c, http.StatusInternalServerError, "failed to fulfill reward")
		return
	}

	common.SuccessResponse(c, reward)
}

// RegisterRoutes mounts the reward endpoints on the admin group
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/rewards/:id", h.GetReward)
	admin.POST("/rewards/:id/fulfill", h.FulfillReward)
	admin.GET("/advocates/:id/rewards", h.ListAdvocateRewards)
}

func listParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
