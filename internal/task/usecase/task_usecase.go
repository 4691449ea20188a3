package usecase

import (
	"fmt"
	"strings"
	"time"

	"miinplanner-backend/internal/task/domain"
)

// BuildTask turns client input into a task ready to persist. Status falls
// back to the first workflow stage and order to the current time in
// milliseconds.
func BuildTask(userID string, in domain.Input, wf domain.Workflow, now time.Time) (*domain.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}

	priority, err := domain.ParsePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = wf.Initial()
	}
	if _, err := wf.Parse(status); err != nil {
		return nil, err
	}

	for _, d := range []*string{in.StartDate, in.DueDate} {
		if d != nil && *d != "" {
			if err := domain.ValidateDate(*d); err != nil {
				return nil, err
			}
		}
	}

	order := float64(now.UnixMilli())
	if in.Order != nil {
		order = *in.Order
	}

	tags := domain.StringArray{}
	for _, tag := range in.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}

	task := &domain.Task{
		UserID:      userID,
		Title:       title,
		Description: blankToNil(in.Description),
		Priority:    priority,
		Status:      status,
		StartDate:   blankToNil(in.StartDate),
		DueDate:     blankToNil(in.DueDate),
		Channel:     blankToNil(in.Channel),
		Assignee:    blankToNil(in.Assignee),
		Tags:        tags,
		Order:       order,
	}
	task.Normalize()
	return task, nil
}

// ValidatePatch checks patch values against the owner's workflow and the
// field formats, and returns the patch with derived fields filled.
func ValidatePatch(p domain.Patch, wf domain.Workflow) (domain.Patch, error) {
	if p.IsEmpty() {
		return p, fmt.Errorf("no fields to update")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return p, domain.ErrTitleRequired
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return p, fmt.Errorf("%w: %q", domain.ErrInvalidPriority, *p.Priority)
	}
	if p.Status != nil {
		if _, err := wf.Parse(*p.Status); err != nil {
			return p, err
		}
	}
	for _, d := range []*string{p.StartDate, p.DueDate} {
		if d != nil && *d != "" {
			if err := domain.ValidateDate(*d); err != nil {
				return p, err
			}
		}
	}
	return p.WithDerived(), nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}
