package delivery

import (
	"net/http"
	"strconv"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	"miinplanner-backend/internal/task/domain"
	"miinplanner-backend/internal/workspace"

	"github.com/gin-gonic/gin"
)

// TaskHandler handles task, workflow status and dashboard requests
type TaskHandler struct {
	registry *workspace.Registry
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(registry *workspace.Registry) *TaskHandler {
	return &TaskHandler{registry: registry}
}

// RegisterRoutes registers task routes on an authenticated group
func (h *TaskHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	{
		tasks.GET("", h.GetTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/search", h.SearchTasks)
		tasks.PATCH("/:id", h.UpdateTask)
		tasks.PATCH("/:id/field", h.UpdateTaskField)
		tasks.POST("/:id/move", h.MoveTask)
		tasks.DELETE("/:id", h.DeleteTask)
	}

	statuses := rg.Group("/statuses")
	{
		statuses.GET("", h.GetStatuses)
		statuses.POST("", h.AddStatus)
		statuses.DELETE("/:status", h.DeleteStatus)
	}

	rg.GET("/dashboard", h.Dashboard)
}

func (h *TaskHandler) workspace(c *gin.Context) *workspace.Workspace {
	session, _ := authdelivery.SessionFrom(c)
	return h.registry.For(session)
}

func respondError(c *gin.Context, err error) {
	c.JSON(workspace.HTTPStatus(err), gin.H{"error": workspace.Message(err)})
}

// GetTasks reloads and returns all tasks of the user
// GET /api/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	ws := h.workspace(c)
	if err := ws.FetchTasks(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	tasks := ws.Tasks()
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// CreateTask creates a new task
// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var in domain.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.workspace(c).AddTask(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// UpdateTask applies a partial update
// PATCH /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var patch domain.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.workspace(c).UpdateTask(c.Request.Context(), c.Param("id"), patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

type updateFieldRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

// UpdateTaskField sets one field of a task
// PATCH /api/tasks/:id/field
func (h *TaskHandler) UpdateTaskField(c *gin.Context) {
	var req updateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.workspace(c).UpdateTaskField(c.Request.Context(), c.Param("id"), req.Field, req.Value); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task updated successfully"})
}

type moveTaskRequest struct {
	Status string `json:"status" binding:"required"`
	Index  *int   `json:"index" binding:"required"`
}

// MoveTask moves a task to a status column and position
// POST /api/tasks/:id/move
func (h *TaskHandler) MoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws := h.workspace(c)
	if err := ws.MoveTask(c.Request.Context(), c.Param("id"), req.Status, *req.Index); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": ws.Tasks()})
}

// DeleteTask deletes a task
// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.workspace(c).DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// SearchTasks searches tasks by fuzzy or semantic matching
// GET /api/tasks/search?q=launch&mode=fuzzy&limit=20
func (h *TaskHandler) SearchTasks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}
	mode := c.DefaultQuery("mode", "fuzzy")
	if mode != "fuzzy" && mode != "semantic" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be fuzzy or semantic"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	tasks, err := h.workspace(c).SearchTasks(c.Request.Context(), query, mode == "semantic", limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks), "mode": mode})
}

// GetStatuses returns the workflow status list
// GET /api/statuses
func (h *TaskHandler) GetStatuses(c *gin.Context) {
	ws := h.workspace(c)
	if err := ws.FetchStatuses(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": ws.Statuses()})
}

type addStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AddStatus appends a workflow status
// POST /api/statuses
func (h *TaskHandler) AddStatus(c *gin.Context) {
	var req addStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws := h.workspace(c)
	if err := ws.AddStatus(c.Request.Context(), req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"statuses": ws.Statuses()})
}

// DeleteStatus removes a workflow status that no task uses
// DELETE /api/statuses/:status
func (h *TaskHandler) DeleteStatus(c *gin.Context) {
	ws := h.workspace(c)
	if err := ws.DeleteStatus(c.Request.Context(), c.Param("status")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": ws.Statuses()})
}

// Dashboard returns tasks, posts and statuses in one call
// GET /api/dashboard
func (h *TaskHandler) Dashboard(c *gin.Context) {
	d, err := h.workspace(c).Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
