package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	taskdomain "miinplanner-backend/internal/task/domain"
	"miinplanner-backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	block    bool
	requests []ai.Request
}

func (s *stubGenerator) Generate(ctx context.Context, req ai.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.response, s.err
}

func (s *stubGenerator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func newTestFlows(t *testing.T, gen ai.Generator) *Flows {
	t.Helper()
	f, err := New(gen, time.Second, zap.NewNop())
	require.NoError(t, err)
	f.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return f
}

func TestDefaultCatalogHasEveryFlow(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)
	for _, name := range []string{"insights", "greeting", "contentIdeas", "socialPost", "prioritize", "quote", "tip"} {
		def, ok := c.Flows[name]
		require.True(t, ok, name)
		require.NotNil(t, def.Schema, name)
		assert.Equal(t, "object", def.Schema.Type, name)
	}
}

func TestLoadCatalogRejectsBrokenTemplates(t *testing.T) {
	_, err := LoadCatalog([]byte("flows:\n  x:\n    prompt: \"{{.Broken\"\n"))
	assert.Error(t, err)

	_, err = LoadCatalog([]byte("flows:\n  x:\n    temperature: 1\n"))
	assert.Error(t, err)
}

func TestGreeting(t *testing.T) {
	ctx := context.Background()

	t.Run("model answer", func(t *testing.T) {
		gen := &stubGenerator{response: "```json\n{\"greeting\": \"Morning Ana, three tasks to go.\"}\n```"}
		res, err := newTestFlows(t, gen).Greeting(ctx, GreetingInput{UserName: "Ana", Page: PageDashboard, TaskCount: 5, PendingCount: 3})
		require.NoError(t, err)
		assert.False(t, res.Fallback)
		assert.Equal(t, "Morning Ana, three tasks to go.", res.Value)
		require.Len(t, gen.requests, 1)
		assert.Contains(t, gen.requests[0].Prompt, "2026-03-10")
		assert.Contains(t, gen.requests[0].Prompt, "dashboard page")
		assert.Equal(t, "greeting", gen.requests[0].SchemaName)
	})

	t.Run("model error", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("quota")}
		res, err := newTestFlows(t, gen).Greeting(ctx, GreetingInput{Page: PageTasks, TaskCount: 1})
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Equal(t, FallbackGreeting, res.Value)
	})

	t.Run("empty greeting", func(t *testing.T) {
		gen := &stubGenerator{response: `{"greeting": "  "}`}
		res, err := newTestFlows(t, gen).Greeting(ctx, GreetingInput{Page: PageCalendar, TaskCount: 1})
		require.NoError(t, err)
		assert.True(t, res.Fallback)
	})

	t.Run("unknown page", func(t *testing.T) {
		gen := &stubGenerator{}
		_, err := newTestFlows(t, gen).Greeting(ctx, GreetingInput{Page: "settings"})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Zero(t, gen.calls())
	})
}

func TestFlowTimeoutFallsBack(t *testing.T) {
	gen := &stubGenerator{block: true}
	f := newTestFlows(t, gen)
	f.timeout = 20 * time.Millisecond

	res, err := f.MotivationalQuote(context.Background(), QuoteInput{})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, Quote{Quote: FallbackQuote, Author: FallbackQuoteAuthor}, res.Value)
}

func TestPrioritizeTasksReconciles(t *testing.T) {
	in := PrioritizeInput{Tasks: []PrioritizeTask{
		{ID: "a", Title: "Launch ad", Priority: "Low"},
		{ID: "b", Title: "Fix typo", Priority: "High"},
		{ID: "c", Title: "Plan Q3", Priority: "Medium"},
	}}

	t.Run("missing suggestion keeps original priority", func(t *testing.T) {
		gen := &stubGenerator{response: `{"suggestions": [
			{"taskId": "b", "suggestedPriority": "Low", "reasoning": "cosmetic"},
			{"taskId": "a", "suggestedPriority": "Urgent", "reasoning": "campaign starts tomorrow"}
		]}`}
		res, err := newTestFlows(t, gen).PrioritizeTasks(context.Background(), in)
		require.NoError(t, err)
		assert.False(t, res.Fallback)
		require.Len(t, res.Value, 3)
		assert.Equal(t, "a", res.Value[0].TaskID)
		assert.Equal(t, taskdomain.PriorityUrgent, res.Value[0].SuggestedPriority)
		assert.Equal(t, taskdomain.PriorityLow, res.Value[1].SuggestedPriority)
		assert.Equal(t, PrioritySuggestion{TaskID: "c", SuggestedPriority: taskdomain.PriorityMedium, Reasoning: NotPrioritizedReasoning}, res.Value[2])
	})

	t.Run("unknown ids duplicates and bad priorities", func(t *testing.T) {
		gen := &stubGenerator{response: `{"suggestions": [
			{"taskId": "zzz", "suggestedPriority": "High", "reasoning": "?"},
			{"taskId": "a", "suggestedPriority": "High", "reasoning": "first"},
			{"taskId": "a", "suggestedPriority": "Low", "reasoning": "second"},
			{"taskId": "b", "suggestedPriority": "Critical", "reasoning": "bad"}
		]}`}
		res, err := newTestFlows(t, gen).PrioritizeTasks(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, res.Value, 3)
		assert.Equal(t, "first", res.Value[0].Reasoning)
		assert.Equal(t, NotPrioritizedReasoning, res.Value[1].Reasoning)
		assert.Equal(t, taskdomain.PriorityHigh, res.Value[1].SuggestedPriority)
		for _, s := range res.Value {
			assert.NotEqual(t, "zzz", s.TaskID)
		}
	})

	t.Run("model failure", func(t *testing.T) {
		gen := &stubGenerator{response: "not json at all"}
		res, err := newTestFlows(t, gen).PrioritizeTasks(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		require.Len(t, res.Value, 3)
		for i, s := range res.Value {
			assert.Equal(t, in.Tasks[i].ID, s.TaskID)
			assert.Equal(t, NotPrioritizedReasoning, s.Reasoning)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := newTestFlows(t, &stubGenerator{}).PrioritizeTasks(context.Background(), PrioritizeInput{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func timestamped(title string, created time.Time) taskdomain.Task {
	return taskdomain.Task{ID: title, Title: title, Status: "To Do", Priority: taskdomain.PriorityMedium, CreatedAt: created, UpdatedAt: created}
}

func TestGenerateInsights(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tasks := []taskdomain.Task{
		timestamped("late", base.Add(48*time.Hour)),
		timestamped("early", base),
		{ID: "x", Title: "no timestamps"},
	}

	t.Run("post-processing", func(t *testing.T) {
		gen := &stubGenerator{response: `{
			"summary": "Steady progress",
			"completionRate": 140,
			"highlights": ["a"],
			"recommendations": ["b"],
			"forecast": [
				{"date": "2026-03-09", "prediction": "past"},
				{"date": "2026-03-10", "prediction": "today"},
				{"date": "2026-03-12T00:00:00Z", "prediction": "later"},
				{"date": "soon", "prediction": "garbage"}
			]
		}`}
		out, err := newTestFlows(t, gen).GenerateInsights(context.Background(), tasks)
		require.NoError(t, err)
		assert.Equal(t, 100.0, out.CompletionRate)
		require.Len(t, out.Forecast, 2)
		assert.Equal(t, "today", out.Forecast[0].Prediction)
		assert.Equal(t, "later", out.Forecast[1].Prediction)
		assert.NotNil(t, out.Bottlenecks)

		prompt := gen.requests[0].Prompt
		assert.Less(t, strings.Index(prompt, "early"), strings.Index(prompt, "late"))
		assert.NotContains(t, prompt, "no timestamps")
	})

	t.Run("negative rate", func(t *testing.T) {
		out := postProcessInsights(FullInsights{CompletionRate: -3}, "2026-03-10")
		assert.Equal(t, 0.0, out.CompletionRate)
	})

	t.Run("propagates model errors", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("boom")}
		_, err := newTestFlows(t, gen).GenerateInsights(context.Background(), tasks)
		assert.Error(t, err)
	})

	t.Run("missing summary", func(t *testing.T) {
		gen := &stubGenerator{response: `{"completionRate": 10}`}
		_, err := newTestFlows(t, gen).GenerateInsights(context.Background(), tasks)
		assert.ErrorIs(t, err, ErrInvalidOutput)
	})
}

func TestSocialPostTruncatesForX(t *testing.T) {
	long := strings.Repeat("é", 300)
	gen := &stubGenerator{response: `{"content": "` + long + `", "hashtags": ["#launch", " ", "growth"]}`}
	res, err := newTestFlows(t, gen).SocialPost(context.Background(), SocialPostInput{Platform: "X", Topic: "launch"})
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Len(t, []rune(res.Value.Content), 280)
	assert.Equal(t, []string{"launch", "growth"}, res.Value.Hashtags)
	assert.Contains(t, gen.requests[0].Prompt, "under 280 characters")

	gen = &stubGenerator{response: `{"content": "` + long + `"}`}
	res, err = newTestFlows(t, gen).SocialPost(context.Background(), SocialPostInput{Platform: "LinkedIn", Topic: "launch"})
	require.NoError(t, err)
	assert.Len(t, []rune(res.Value.Content), 300)
}

func TestContentIdeas(t *testing.T) {
	gen := &stubGenerator{response: `{"ideas": [{"title": "One", "description": "d"}, {"title": "", "description": "skip"}, {"title": "Two", "description": "d"}, {"title": "Three", "description": "d"}]}`}
	res, err := newTestFlows(t, gen).ContentIdeas(context.Background(), ContentIdeasInput{Topic: "coffee", Count: 2})
	require.NoError(t, err)
	require.Len(t, res.Value, 2)
	assert.Equal(t, "Two", res.Value[1].Title)

	gen = &stubGenerator{response: `{"ideas": []}`}
	res, err = newTestFlows(t, gen).ContentIdeas(context.Background(), ContentIdeasInput{Topic: "coffee"})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Contains(t, res.Value[0].Title, "coffee")
	assert.Contains(t, gen.requests[0].Prompt, "Suggest 5 content ideas")
}

func TestProductivityTip(t *testing.T) {
	gen := &stubGenerator{response: `{"reply": "Batch your emails."}`}
	res, err := newTestFlows(t, gen).ProductivityTip(context.Background(), TipInput{
		Message: "How do I focus?",
		History: []ChatTurn{{Role: "user", Content: "hi"}, {Role: "model", Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Batch your emails.", res.Value)
	assert.Contains(t, gen.requests[0].Prompt, "model: hello")

	_, err = newTestFlows(t, gen).ProductivityTip(context.Background(), TipInput{Message: "x", History: []ChatTurn{{Role: "system", Content: "x"}}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
