package delivery

import (
	"errors"
	"net/http"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	"miinplanner-backend/internal/reminder/domain"
	"miinplanner-backend/internal/reminder/repository"

	"github.com/gin-gonic/gin"
)

// ReminderHandler handles HTTP requests for reminders
type ReminderHandler struct {
	repo repository.ReminderRepository
}

func NewReminderHandler(repo repository.ReminderRepository) *ReminderHandler {
	return &ReminderHandler{repo: repo}
}

// RegisterRoutes registers reminder routes on an authenticated group
func (h *ReminderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reminders := rg.Group("/reminders")
	{
		reminders.GET("", h.List)
		reminders.POST("", h.Create)
		reminders.DELETE("/:id", h.Delete)
		reminders.PATCH("/:id/triggered", h.SetTriggered)
	}
}

func (h *ReminderHandler) List(c *gin.Context) {
	session, _ := authdelivery.SessionFrom(c)
	reminders, err := h.repo.ListByUser(c.Request.Context(), session.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

func (h *ReminderHandler) Create(c *gin.Context) {
	session, _ := authdelivery.SessionFrom(c)

	var in domain.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reminder, err := domain.NewReminder(session.UID, in)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.Create(c.Request.Context(), reminder); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

func (h *ReminderHandler) Delete(c *gin.Context) {
	session, _ := authdelivery.SessionFrom(c)
	if err := h.repo.Delete(c.Request.Context(), session.UID, c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReminderHandler) SetTriggered(c *gin.Context) {
	session, _ := authdelivery.SessionFrom(c)

	var req struct {
		Triggered *bool `json:"triggered" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.SetTriggered(c.Request.Context(), session.UID, c.Param("id"), *req.Triggered); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"triggered": *req.Triggered})
}

func (h *ReminderHandler) writeError(c *gin.Context, err error) {
	if errors.Is(err, domain.ErrReminderNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
