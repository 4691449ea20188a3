package workspace

import (
	"context"
	"strings"
	"unicode/utf8"

	"miinplanner-backend/internal/flows"
	taskdomain "miinplanner-backend/internal/task/domain"

	"go.uber.org/zap"
)

// InsightsThreshold is the number of timestamped tasks needed before the
// model is asked for a full report
const InsightsThreshold = 5

const (
	InsightsSimple = "simple"
	InsightsFull   = "full"
)

// SimpleInsights is computed locally from the non-archived tasks
type SimpleInsights struct {
	TotalTasks        int `json:"totalTasks"`
	TasksToDo         int `json:"tasksToDo"`
	HighPriorityTasks int `json:"highPriorityTasks"`
}

// Insights is either a simple count summary or a full model report
type Insights struct {
	Type string `json:"type"`
	*SimpleInsights
	*flows.FullInsights
}

func simpleInsights(tasks []taskdomain.Task) SimpleInsights {
	var s SimpleInsights
	for _, t := range tasks {
		if t.Archived {
			continue
		}
		s.TotalTasks++
		if !t.Completed {
			s.TasksToDo++
		}
		if t.Priority == taskdomain.PriorityHigh || t.Priority == taskdomain.PriorityUrgent {
			s.HighPriorityTasks++
		}
	}
	return s
}

// GenerateInsights builds a report of the cached tasks. Below the
// threshold it never calls the model; a model failure clears any previous
// report.
func (w *Workspace) GenerateInsights(ctx context.Context) (*Insights, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	if err := w.ensureTasksLocked(ctx, uid); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	tasks := taskdomain.CloneTasks(w.tasks)
	w.mu.Unlock()

	qualifying := 0
	for _, t := range tasks {
		if t.HasTimestamps() {
			qualifying++
		}
	}

	if qualifying < InsightsThreshold {
		simple := simpleInsights(tasks)
		result := &Insights{Type: InsightsSimple, SimpleInsights: &simple}
		w.setInsights(result)
		return result, nil
	}

	full, err := w.deps.AI.GenerateInsights(ctx, tasks)
	if err != nil {
		w.setInsights(nil)
		w.log.Error("failed to generate insights", zap.Error(err))
		return nil, userError("Failed to generate AI insights", err)
	}
	result := &Insights{Type: InsightsFull, FullInsights: full}
	w.setInsights(result)
	return result, nil
}

func (w *Workspace) setInsights(in *Insights) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.insights = in
}

// FetchGreeting returns the greeting for a page, asking the model at most
// once a day per page. Without tasks there is nothing to greet about and
// the cache stays empty.
func (w *Workspace) FetchGreeting(ctx context.Context, page string) (string, error) {
	uid, err := w.uid()
	if err != nil {
		return "", err
	}
	switch page {
	case flows.PageDashboard, flows.PageTasks, flows.PageCalendar:
	default:
		return "", invalid(&pageError{page: page})
	}

	today := w.today()
	w.mu.Lock()
	if entry, ok := w.greetings[page]; ok && entry.date == today {
		w.mu.Unlock()
		return entry.text, nil
	}
	if err := w.ensureTasksLocked(ctx, uid); err != nil {
		w.mu.Unlock()
		return "", err
	}
	in := flows.GreetingInput{Page: page, CurrentDate: today, UserName: greetingName(w.session.DisplayName)}
	for _, t := range w.tasks {
		if t.Archived {
			continue
		}
		in.TaskCount++
		if !t.Completed {
			in.PendingCount++
			if t.DueDate != nil && len(*t.DueDate) >= len(today) && (*t.DueDate)[:len(today)] < today {
				in.OverdueCount++
			}
		}
	}
	w.mu.Unlock()

	if in.TaskCount == 0 {
		return "", nil
	}

	res, err := w.deps.AI.Greeting(ctx, in)
	if err != nil {
		w.log.Warn("greeting failed, using fallback", zap.String("page", page), zap.Error(err))
		return flows.FallbackGreeting, nil
	}

	w.mu.Lock()
	w.greetings[page] = greetingEntry{date: today, text: res.Value}
	w.mu.Unlock()
	return res.Value, nil
}

// greetingName trims a display name to what the greeting prompt accepts
func greetingName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= flows.MaxUserNameLength {
		return name
	}
	return strings.TrimSpace(string([]rune(name)[:flows.MaxUserNameLength]))
}

type pageError struct{ page string }

func (e *pageError) Error() string { return "unknown page " + e.page }
