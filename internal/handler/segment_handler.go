package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/service"
	"github.com/jengzang/regps-supervision-go/pkg/response"
)

// SegmentHandler handles HTTP requests for route segments and anomaly events
type SegmentHandler struct {
	service *service.SegmentService
}

// NewSegmentHandler creates a new segment handler
func NewSegmentHandler(service *service.SegmentService) *SegmentHandler {
	return &SegmentHandler{service: service}
}

// GetSegments handles GET /api/v1/segments
func (h *SegmentHandler) GetSegments(c *gin.Context) {
	var filter models.SegmentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter.Normalize()

	segments, total, err := h.service.GetSegments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := int(total) / filter.PageSize
	if int(total)%filter.PageSize > 0 {
		totalPages++
	}

	response.Success(c, gin.H{
		"data":       segments,
		"total":      total,
		"page":       filter.Page,
		"pageSize":   filter.PageSize,
		"totalPages": totalPages,
	})
}

// GetSegmentByID handles GET /api/v1/segments/:id
func (h *SegmentHandler) GetSegmentByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid segment ID")
		return
	}

	segment, err := h.service.GetSegmentByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if segment == nil {
		response.NotFound(c, "Segment not found")
		return
	}

	response.Success(c, segment)
}

// GetAnomalyEvents handles GET /api/v1/anomalies?device_id=&limit=
func (h *SegmentHandler) GetAnomalyEvents(c *gin.Context) {
	var filter models.AnomalyEventFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	events, err := h.service.GetAnomalyEvents(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"events": events,
		"count":  len(events),
	})
}
