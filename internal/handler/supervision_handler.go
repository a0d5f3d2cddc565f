package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/regps-supervision-go/internal/models"
	"github.com/jengzang/regps-supervision-go/internal/service"
	"github.com/jengzang/regps-supervision-go/pkg/response"
)

// SupervisionHandler serves the request-time prediction and scoring endpoints
type SupervisionHandler struct {
	eta      *service.ETAService
	anomaly  *service.AnomalyService
	behavior *service.BehaviorService
	geofence *service.GeofenceService
}

// NewSupervisionHandler creates a new supervision handler
func NewSupervisionHandler(eta *service.ETAService, anomaly *service.AnomalyService, behavior *service.BehaviorService, geofence *service.GeofenceService) *SupervisionHandler {
	return &SupervisionHandler{eta: eta, anomaly: anomaly, behavior: behavior, geofence: geofence}
}

// PredictETA estimates the arrival time at a destination
// POST /api/v1/predict/eta
func (h *SupervisionHandler) PredictETA(c *gin.Context) {
	var req models.ETARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	est, err := h.eta.Estimate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, est)
}

// DetectAnomaly evaluates a short window of readings
// POST /api/v1/detect/anomaly
func (h *SupervisionHandler) DetectAnomaly(c *gin.Context) {
	var req models.AnomalyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	verdict, err := h.anomaly.Detect(req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, verdict)
}

// ClassifyBehavior scores a window of readings
// POST /api/v1/classify/behavior
func (h *SupervisionHandler) ClassifyBehavior(c *gin.Context) {
	var req models.BehaviorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	score, err := h.behavior.Classify(req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, score)
}

// VerifyGeofence lists the zones containing a location
// POST /api/v1/verify/geofence
func (h *SupervisionHandler) VerifyGeofence(c *gin.Context) {
	var req models.GeofenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	res, err := h.geofence.Verify(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, res)
}
