package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/regps-supervision-go/internal/repository"
	"github.com/jengzang/regps-supervision-go/internal/service"
	"github.com/jengzang/regps-supervision-go/pkg/response"
)

// DailyMetricsHandler serves persisted daily metrics
type DailyMetricsHandler struct {
	service *service.DailyMetricsService
}

// NewDailyMetricsHandler creates a new daily metrics handler
func NewDailyMetricsHandler(service *service.DailyMetricsService) *DailyMetricsHandler {
	return &DailyMetricsHandler{service: service}
}

// List returns daily metrics filtered by device and date range
// GET /api/v1/metrics/daily?device_id=&from=&to=
func (h *DailyMetricsHandler) List(c *gin.Context) {
	var filter repository.DailyMetricsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	metrics, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"metrics": metrics,
		"count":   len(metrics),
	})
}
