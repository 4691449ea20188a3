package flows

import (
	"context"
	"fmt"
	"sort"
	"time"

	taskdomain "miinplanner-backend/internal/task/domain"
)

// InsightTask is the view of a task the insights prompt sees
type InsightTask struct {
	Title     string `validate:"required"`
	Status    string
	Priority  string
	DueDate   string
	Completed bool
	CreatedAt string `validate:"required"`
	UpdatedAt string `validate:"required"`
}

type InsightsInput struct {
	Tasks       []InsightTask `validate:"min=1,dive"`
	CurrentDate string        `validate:"required,datetime=2006-01-02"`
}

type ForecastEntry struct {
	Date       string `json:"date"`
	Prediction string `json:"prediction"`
}

// FullInsights is the model-generated workload report
type FullInsights struct {
	Summary         string          `json:"summary"`
	CompletionRate  float64         `json:"completionRate"`
	Highlights      []string        `json:"highlights"`
	Bottlenecks     []string        `json:"bottlenecks"`
	Recommendations []string        `json:"recommendations"`
	Forecast        []ForecastEntry `json:"forecast"`
}

// GenerateInsights reports on tasks with resolvable timestamps, oldest
// first. Unlike the other flows it returns the model error instead of a
// fallback.
func (f *Flows) GenerateInsights(ctx context.Context, tasks []taskdomain.Task) (*FullInsights, error) {
	qualifying := make([]taskdomain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.HasTimestamps() {
			qualifying = append(qualifying, t)
		}
	}
	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].CreatedAt.Before(qualifying[j].CreatedAt)
	})

	in := InsightsInput{CurrentDate: f.today()}
	for _, t := range qualifying {
		it := InsightTask{
			Title:     t.Title,
			Status:    t.Status,
			Priority:  string(t.Priority),
			Completed: t.Completed,
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if t.DueDate != nil {
			it.DueDate = *t.DueDate
		}
		in.Tasks = append(in.Tasks, it)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	out, err := invoke[FullInsights](ctx, f, "insights", in)
	if err != nil {
		return nil, fmt.Errorf("failed to generate insights: %w", err)
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("%w: insights without summary", ErrInvalidOutput)
	}
	cleaned := postProcessInsights(out, in.CurrentDate)
	return &cleaned, nil
}

// postProcessInsights clamps the completion rate and drops forecast
// entries dated before today or not parseable as dates.
func postProcessInsights(in FullInsights, today string) FullInsights {
	switch {
	case in.CompletionRate < 0:
		in.CompletionRate = 0
	case in.CompletionRate > 100:
		in.CompletionRate = 100
	}
	forecast := make([]ForecastEntry, 0, len(in.Forecast))
	for _, entry := range in.Forecast {
		date := entry.Date
		if len(date) > len(time.DateOnly) {
			date = date[:len(time.DateOnly)]
		}
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			continue
		}
		if date < today {
			continue
		}
		forecast = append(forecast, entry)
	}
	in.Forecast = forecast
	if in.Highlights == nil {
		in.Highlights = []string{}
	}
	if in.Bottlenecks == nil {
		in.Bottlenecks = []string{}
	}
	if in.Recommendations == nil {
		in.Recommendations = []string{}
	}
	return in
}
