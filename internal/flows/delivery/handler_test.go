package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	authdomain "miinplanner-backend/internal/auth/domain"
	authusecase "miinplanner-backend/internal/auth/usecase"
	"miinplanner-backend/internal/flows"
	taskdomain "miinplanner-backend/internal/task/domain"
	taskrepo "miinplanner-backend/internal/task/repository"
	"miinplanner-backend/internal/workspace"
	"miinplanner-backend/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFlows struct {
	prioritized flows.PrioritizeInput
	tip         flows.TipInput
}

func (s *stubFlows) ContentIdeas(_ context.Context, in flows.ContentIdeasInput) (flows.Result[[]flows.ContentIdea], error) {
	return flows.Result[[]flows.ContentIdea]{Value: []flows.ContentIdea{{Title: "Idea about " + in.Topic}}}, nil
}

func (s *stubFlows) SocialPost(_ context.Context, in flows.SocialPostInput) (flows.Result[flows.SocialPostDraft], error) {
	if in.Topic == "" {
		return flows.Result[flows.SocialPostDraft]{}, flows.ErrInvalidInput
	}
	return flows.Result[flows.SocialPostDraft]{Value: flows.SocialPostDraft{Content: "Post on " + in.Topic}}, nil
}

func (s *stubFlows) PrioritizeTasks(_ context.Context, in flows.PrioritizeInput) (flows.Result[[]flows.PrioritySuggestion], error) {
	s.prioritized = in
	out := make([]flows.PrioritySuggestion, len(in.Tasks))
	for i, t := range in.Tasks {
		out[i] = flows.PrioritySuggestion{TaskID: t.ID, SuggestedPriority: "High", Reasoning: "stub"}
	}
	return flows.Result[[]flows.PrioritySuggestion]{Value: out}, nil
}

func (s *stubFlows) MotivationalQuote(context.Context, flows.QuoteInput) (flows.Result[flows.Quote], error) {
	return flows.Result[flows.Quote]{
		Value:    flows.Quote{Quote: flows.FallbackQuote, Author: flows.FallbackQuoteAuthor},
		Fallback: true,
	}, nil
}

func (s *stubFlows) ProductivityTip(_ context.Context, in flows.TipInput) (flows.Result[string], error) {
	s.tip = in
	return flows.Result[string]{Value: "Take a break."}, nil
}

type countingQuota struct {
	limit int
	used  map[authdomain.UsageKind]int
}

func (q *countingQuota) ConsumeQuota(_ context.Context, _ string, kind authdomain.UsageKind) error {
	if q.used[kind] >= q.limit {
		return authdomain.ErrQuotaExceeded
	}
	q.used[kind]++
	return nil
}

type noProfiles struct{}

func (noProfiles) Statuses(context.Context, string) ([]string, error) {
	return taskdomain.DefaultStatuses, nil
}

func (noProfiles) UpdateStatuses(context.Context, string, []string) error { return nil }

type harness struct {
	router *gin.Engine
	token  string
	tasks  taskrepo.TaskRepository
	flows  *stubFlows
	quota  *countingQuota
}

func newHarness(t *testing.T, limit int) *harness {
	t.Helper()
	db, err := store.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&taskdomain.Task{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	h := &harness{
		tasks: taskrepo.NewGormTaskRepository(db),
		flows: &stubFlows{},
		quota: &countingQuota{limit: limit, used: map[authdomain.UsageKind]int{}},
	}
	registry := workspace.NewRegistry(workspace.Deps{Tasks: h.tasks, Profiles: noProfiles{}})

	verifier := authusecase.NewJWTVerifier("test-secret", time.Hour)
	h.token, err = verifier.Issue(authdomain.Session{UID: "u1", EmailVerified: true})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	h.router = gin.New()
	NewAIHandler(registry, h.flows, h.quota).RegisterRoutes(h.router.Group("/api", authdelivery.AuthMiddleware(verifier)))
	return h
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func TestGenerationQuota(t *testing.T) {
	h := newHarness(t, 2)

	w := h.do(http.MethodPost, "/api/ai/content-ideas", `{"topic": "spring sale"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Idea about spring sale")

	w = h.do(http.MethodPost, "/api/ai/social-post", `{"platform": "X", "topic": "launch"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/api/ai/content-ideas", `{"topic": "again"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 2, h.quota.used[authdomain.UsageGenerations])

	// chat messages are metered separately
	w = h.do(http.MethodPost, "/api/ai/tip", `{"message": "I'm stuck"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvalidFlowInput(t *testing.T) {
	h := newHarness(t, 10)
	w := h.do(http.MethodPost, "/api/ai/social-post", `{"platform": "X"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, "/api/ai/content-ideas", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRejectedInputKeepsQuota(t *testing.T) {
	h := newHarness(t, 1)
	long := strings.Repeat("a", 201)

	w := h.do(http.MethodPost, "/api/ai/content-ideas", `{"topic": "`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, "/api/ai/social-post", `{"platform": "MySpace", "topic": "launch"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPost, "/api/ai/tip", `{"message": "help", "history": [{"role": "robot", "content": "hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, h.quota.used[authdomain.UsageGenerations])
	assert.Zero(t, h.quota.used[authdomain.UsageMessages])

	w = h.do(http.MethodPost, "/api/ai/content-ideas", `{"topic": "spring sale"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(http.MethodPost, "/api/ai/tip", `{"message": "help"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPrioritizeSelectsOpenTasks(t *testing.T) {
	h := newHarness(t, 10)
	ctx := context.Background()
	for _, task := range []taskdomain.Task{
		{UserID: "u1", Title: "Open", Status: "To Do", Priority: taskdomain.PriorityLow},
		{UserID: "u1", Title: "Shipped", Status: "Done", Priority: taskdomain.PriorityLow, Completed: true},
		{UserID: "u1", Title: "Old", Status: "To Do", Priority: taskdomain.PriorityLow, Archived: true},
	} {
		require.NoError(t, h.tasks.Create(ctx, &task))
	}

	w := h.do(http.MethodPost, "/api/ai/prioritize", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, h.flows.prioritized.Tasks, 1)
	assert.Equal(t, "Open", h.flows.prioritized.Tasks[0].Title)
	assert.Contains(t, w.Body.String(), `"suggestedPriority":"High"`)
}

func TestPrioritizeWithoutTasksSkipsModel(t *testing.T) {
	h := newHarness(t, 0)
	w := h.do(http.MethodPost, "/api/ai/prioritize", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"suggestions": [], "fallback": false}`, w.Body.String())
}

func TestQuoteAndGreeting(t *testing.T) {
	h := newHarness(t, 0)

	w := h.do(http.MethodGet, "/api/ai/quote?mood=tired", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), flows.FallbackQuoteAuthor)

	w = h.do(http.MethodGet, "/api/ai/greeting", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"greeting": "", "page": "dashboard"}`, w.Body.String())

	w = h.do(http.MethodGet, "/api/ai/greeting?page=settings", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPrioritizeInput(t *testing.T) {
	desc := "brief"
	due := "2026-04-01"
	tasks := []taskdomain.Task{
		{ID: "a", Title: "A", Status: "To Do", Description: &desc, DueDate: &due},
		{ID: "b", Title: "B", Status: "Done", Completed: true, Priority: taskdomain.PriorityUrgent},
		{ID: "c", Title: "C", Status: "To Do", Archived: true},
	}

	in := PrioritizeInput(tasks, nil)
	require.Len(t, in.Tasks, 1)
	assert.Equal(t, flows.PrioritizeTask{
		ID: "a", Title: "A", Description: "brief", Priority: "Medium", Status: "To Do", DueDate: "2026-04-01",
	}, in.Tasks[0])

	in = PrioritizeInput(tasks, []string{"c", "b", "missing", "c"})
	require.Len(t, in.Tasks, 2)
	assert.Equal(t, "c", in.Tasks[0].ID)
	assert.Equal(t, "Urgent", in.Tasks[1].Priority)
}

func TestTaskContext(t *testing.T) {
	assert.Empty(t, TaskContext(nil))
	ctx := TaskContext([]taskdomain.Task{
		{Title: "Pitch deck", Priority: taskdomain.PriorityUrgent},
		{Title: "Newsletter", Priority: taskdomain.PriorityLow},
		{Title: "Done", Priority: taskdomain.PriorityHigh, Completed: true},
	})
	assert.Equal(t, "2 open tasks, 1 high priority: Pitch deck", ctx)
}
