package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	authdomain "miinplanner-backend/internal/auth/domain"
	"miinplanner-backend/internal/flows"
	taskdomain "miinplanner-backend/internal/task/domain"
	"miinplanner-backend/internal/workspace"

	"github.com/gin-gonic/gin"
)

// Generators are the flows served directly over HTTP
type Generators interface {
	ContentIdeas(ctx context.Context, in flows.ContentIdeasInput) (flows.Result[[]flows.ContentIdea], error)
	SocialPost(ctx context.Context, in flows.SocialPostInput) (flows.Result[flows.SocialPostDraft], error)
	PrioritizeTasks(ctx context.Context, in flows.PrioritizeInput) (flows.Result[[]flows.PrioritySuggestion], error)
	MotivationalQuote(ctx context.Context, in flows.QuoteInput) (flows.Result[flows.Quote], error)
	ProductivityTip(ctx context.Context, in flows.TipInput) (flows.Result[string], error)
}

// Quota meters the rate-limited AI features per user
type Quota interface {
	ConsumeQuota(ctx context.Context, uid string, kind authdomain.UsageKind) error
}

// AIHandler handles AI flow requests
type AIHandler struct {
	registry *workspace.Registry
	flows    Generators
	quota    Quota
}

func NewAIHandler(registry *workspace.Registry, generators Generators, quota Quota) *AIHandler {
	return &AIHandler{registry: registry, flows: generators, quota: quota}
}

// RegisterRoutes registers AI routes on an authenticated group
func (h *AIHandler) RegisterRoutes(rg *gin.RouterGroup) {
	ai := rg.Group("/ai")
	{
		ai.POST("/insights", h.Insights)
		ai.GET("/greeting", h.Greeting)
		ai.POST("/content-ideas", h.ContentIdeas)
		ai.POST("/social-post", h.SocialPost)
		ai.POST("/prioritize", h.Prioritize)
		ai.GET("/quote", h.Quote)
		ai.POST("/tip", h.Tip)
	}
}

func (h *AIHandler) workspace(c *gin.Context) *workspace.Workspace {
	session, _ := authdelivery.SessionFrom(c)
	return h.registry.For(session)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, flows.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, authdomain.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	default:
		c.JSON(workspace.HTTPStatus(err), gin.H{"error": workspace.Message(err)})
	}
}

// consume charges one use of kind; it writes the error response and
// returns false when the request must stop
func (h *AIHandler) consume(c *gin.Context, kind authdomain.UsageKind) bool {
	session, ok := authdelivery.SessionFrom(c)
	if !ok {
		respondError(c, workspace.ErrNotAuthenticated)
		return false
	}
	if h.quota == nil {
		return true
	}
	if err := h.quota.ConsumeQuota(c.Request.Context(), session.UID, kind); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

// Insights builds a workload report from the current tasks
// POST /api/ai/insights
func (h *AIHandler) Insights(c *gin.Context) {
	insights, err := h.workspace(c).GenerateInsights(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

// Greeting returns the cached or freshly generated page greeting
// GET /api/ai/greeting?page=dashboard
func (h *AIHandler) Greeting(c *gin.Context) {
	page := c.DefaultQuery("page", flows.PageDashboard)
	text, err := h.workspace(c).FetchGreeting(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"greeting": text, "page": page})
}

// ContentIdeas suggests content ideas for a topic
// POST /api/ai/content-ideas
func (h *AIHandler) ContentIdeas(c *gin.Context) {
	var in flows.ContentIdeasInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := flows.Validate(in); err != nil {
		respondError(c, err)
		return
	}
	if !h.consume(c, authdomain.UsageGenerations) {
		return
	}
	res, err := h.flows.ContentIdeas(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ideas": res.Value, "fallback": res.Fallback})
}

// SocialPost drafts a post for a platform
// POST /api/ai/social-post
func (h *AIHandler) SocialPost(c *gin.Context) {
	var in flows.SocialPostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := flows.Validate(in); err != nil {
		respondError(c, err)
		return
	}
	if !h.consume(c, authdomain.UsageGenerations) {
		return
	}
	res, err := h.flows.SocialPost(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": res.Value, "fallback": res.Fallback})
}

type prioritizeRequest struct {
	TaskIDs []string `json:"taskIds"`
}

// Prioritize suggests priorities for open tasks, or for the given ids
// POST /api/ai/prioritize
func (h *AIHandler) Prioritize(c *gin.Context) {
	var req prioritizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	ws := h.workspace(c)
	if err := ws.FetchTasks(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	in := PrioritizeInput(ws.Tasks(), req.TaskIDs)
	if len(in.Tasks) == 0 {
		c.JSON(http.StatusOK, gin.H{"suggestions": []flows.PrioritySuggestion{}, "fallback": false})
		return
	}
	if err := flows.Validate(in); err != nil {
		respondError(c, err)
		return
	}
	if !h.consume(c, authdomain.UsageGenerations) {
		return
	}
	res, err := h.flows.PrioritizeTasks(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": res.Value, "fallback": res.Fallback})
}

// PrioritizeInput selects the tasks to prioritize: the listed ids in
// order, or every open, non-archived task when ids is empty.
func PrioritizeInput(tasks []taskdomain.Task, ids []string) flows.PrioritizeInput {
	byID := make(map[string]taskdomain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var selected []taskdomain.Task
	if len(ids) > 0 {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if t, ok := byID[id]; ok && !seen[id] {
				seen[id] = true
				selected = append(selected, t)
			}
		}
	} else {
		for _, t := range tasks {
			if !t.Archived && !t.Completed {
				selected = append(selected, t)
			}
		}
	}

	in := flows.PrioritizeInput{Tasks: make([]flows.PrioritizeTask, 0, len(selected))}
	for _, t := range selected {
		pt := flows.PrioritizeTask{ID: t.ID, Title: t.Title, Priority: string(t.Priority), Status: t.Status}
		if pt.Priority == "" {
			pt.Priority = string(taskdomain.PriorityMedium)
		}
		if t.Description != nil {
			pt.Description = *t.Description
		}
		if t.DueDate != nil {
			pt.DueDate = *t.DueDate
		}
		in.Tasks = append(in.Tasks, pt)
	}
	return in
}

// Quote returns a motivational quote
// GET /api/ai/quote?mood=tired
func (h *AIHandler) Quote(c *gin.Context) {
	res, err := h.flows.MotivationalQuote(c.Request.Context(), flows.QuoteInput{Mood: c.Query("mood")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quote": res.Value.Quote, "author": res.Value.Author, "fallback": res.Fallback})
}

// Tip answers a productivity coach chat message
// POST /api/ai/tip
func (h *AIHandler) Tip(c *gin.Context) {
	var in flows.TipInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.TaskContext == "" {
		in.TaskContext = TaskContext(h.workspace(c).Tasks())
	}
	if err := flows.Validate(in); err != nil {
		respondError(c, err)
		return
	}
	if !h.consume(c, authdomain.UsageMessages) {
		return
	}
	res, err := h.flows.ProductivityTip(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": res.Value, "fallback": res.Fallback})
}

// TaskContext summarises the cached workload for the coach prompt
func TaskContext(tasks []taskdomain.Task) string {
	open, urgent := 0, 0
	var titles []string
	for _, t := range tasks {
		if t.Archived || t.Completed {
			continue
		}
		open++
		if t.Priority == taskdomain.PriorityUrgent || t.Priority == taskdomain.PriorityHigh {
			urgent++
			if len(titles) < 5 {
				titles = append(titles, t.Title)
			}
		}
	}
	if open == 0 {
		return ""
	}
	ctx := fmt.Sprintf("%d open tasks, %d high priority", open, urgent)
	if len(titles) > 0 {
		ctx += ": " + strings.Join(titles, "; ")
	}
	return ctx
}
