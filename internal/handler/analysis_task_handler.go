package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/regps-supervision-go/internal/service"
	"github.com/jengzang/regps-supervision-go/pkg/response"
)

// AnalysisTaskHandler handles HTTP requests for analysis tasks
type AnalysisTaskHandler struct {
	service *service.AnalysisTaskService
}

// NewAnalysisTaskHandler creates a new analysis task handler
func NewAnalysisTaskHandler(service *service.AnalysisTaskService) *AnalysisTaskHandler {
	return &AnalysisTaskHandler{service: service}
}

// CreateTaskRequest represents the request body for creating an analysis task
type CreateTaskRequest struct {
	SkillName string                 `json:"skill_name" binding:"required"` // daily_metrics, route_segments, anomaly_scan
	Params    map[string]interface{} `json:"params"`
}

// CreateTask creates a new analysis task and starts it
// POST /api/v1/analysis/tasks
func (h *AnalysisTaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	// Set by the auth middleware when enabled
	createdBy := c.GetString("user")

	task, err := h.service.CreateTask(req.SkillName, req.Params, createdBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, response.Response{
		Code:    0,
		Message: "accepted",
		Data:    task,
	})
}

// GetTask retrieves a task by ID
// GET /api/v1/analysis/tasks/:id
func (h *AnalysisTaskHandler) GetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.GetTask(id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, task)
}

// ListTasks retrieves tasks
// GET /api/v1/analysis/tasks
func (h *AnalysisTaskHandler) ListTasks(c *gin.Context) {
	skillName := c.Query("skill_name")
	status := c.Query("status")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		offset = 0
	}

	tasks, err := h.service.ListTasks(skillName, status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"tasks":  tasks,
		"skills": h.service.Skills(),
		"limit":  limit,
		"offset": offset,
	})
}

// CancelTask cancels a pending or running task
// DELETE /api/v1/analysis/tasks/:id
func (h *AnalysisTaskHandler) CancelTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task ID")
		return
	}

	if err := h.service.CancelTask(id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "Task cancelled successfully"})
}
