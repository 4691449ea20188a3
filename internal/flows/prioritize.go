package flows

import (
	"context"

	taskdomain "miinplanner-backend/internal/task/domain"

	"go.uber.org/zap"
)

// NotPrioritizedReasoning is attached to tasks the model left out
const NotPrioritizedReasoning = "Not explicitly prioritized by AI."

type PrioritizeTask struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"oneof=Low Medium High Urgent"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

type PrioritizeInput struct {
	Tasks       []PrioritizeTask `json:"tasks" validate:"min=1,max=100,dive"`
	CurrentDate string           `json:"-"`
}

type PrioritySuggestion struct {
	TaskID            string              `json:"taskId"`
	SuggestedPriority taskdomain.Priority `json:"suggestedPriority"`
	Reasoning         string              `json:"reasoning"`
}

type prioritizeOutput struct {
	Suggestions []PrioritySuggestion `json:"suggestions"`
}

// PrioritizeTasks suggests a priority for every input task. The output has
// exactly one entry per input task, in input order.
func (f *Flows) PrioritizeTasks(ctx context.Context, in PrioritizeInput) (Result[[]PrioritySuggestion], error) {
	if err := validateInput(in); err != nil {
		return Result[[]PrioritySuggestion]{}, err
	}
	if in.CurrentDate == "" {
		in.CurrentDate = f.today()
	}

	out, err := invoke[prioritizeOutput](ctx, f, "prioritize", in)
	if err != nil {
		return fallback(f, "prioritize", err, f.reconcile(in.Tasks, nil)), nil
	}
	return Result[[]PrioritySuggestion]{Value: f.reconcile(in.Tasks, out.Suggestions)}, nil
}

// reconcile maps model suggestions back onto the input tasks. Unknown ids
// are logged and ignored, the first suggestion for an id wins and invalid
// priorities count as missing.
func (f *Flows) reconcile(tasks []PrioritizeTask, suggestions []PrioritySuggestion) []PrioritySuggestion {
	known := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		known[t.ID] = struct{}{}
	}

	byID := make(map[string]PrioritySuggestion, len(suggestions))
	for _, s := range suggestions {
		if _, ok := known[s.TaskID]; !ok {
			f.log.Warn("ignoring suggestion for unknown task", zap.String("taskId", s.TaskID))
			continue
		}
		if _, dup := byID[s.TaskID]; dup {
			continue
		}
		if !s.SuggestedPriority.Valid() {
			continue
		}
		byID[s.TaskID] = s
	}

	result := make([]PrioritySuggestion, 0, len(tasks))
	for _, t := range tasks {
		if s, ok := byID[t.ID]; ok {
			result = append(result, s)
			continue
		}
		result = append(result, PrioritySuggestion{
			TaskID:            t.ID,
			SuggestedPriority: taskdomain.Priority(t.Priority),
			Reasoning:         NotPrioritizedReasoning,
		})
	}
	return result
}
