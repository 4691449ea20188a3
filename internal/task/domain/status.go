package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// TerminalStatus marks a task as completed.
const TerminalStatus = "Done"

// DefaultStatuses is the workflow every new profile starts with.
var DefaultStatuses = []string{"To Do", "In Progress", "Review", "Blocked", TerminalStatus}

var (
	ErrUnknownStatus   = errors.New("unknown status")
	ErrEmptyStatus     = errors.New("status must not be empty")
	ErrDuplicateStatus = errors.New("status already exists")
)

// IsTerminal reports whether status completes a task.
func IsTerminal(status string) bool {
	return status == TerminalStatus
}

// Workflow is a user's ordered list of task stages. The set is
// user-extensible, so statuses are validated against it at runtime.
type Workflow struct {
	statuses []string
}

// NewWorkflow wraps statuses, falling back to the defaults when empty.
func NewWorkflow(statuses []string) Workflow {
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}
	return Workflow{statuses: slices.Clone(statuses)}
}

func (w Workflow) Statuses() []string {
	return slices.Clone(w.statuses)
}

func (w Workflow) Contains(status string) bool {
	return slices.Contains(w.statuses, status)
}

// Initial is the stage new tasks land in.
func (w Workflow) Initial() string {
	if len(w.statuses) == 0 {
		return DefaultStatuses[0]
	}
	return w.statuses[0]
}

// Status is a workflow stage validated against a Workflow
type Status struct {
	value string
}

func (s Status) String() string { return s.value }

// Parse validates a raw status string against the workflow.
func (w Workflow) Parse(raw string) (Status, error) {
	if !w.Contains(raw) {
		return Status{}, fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}
	return Status{value: raw}, nil
}

// With returns a workflow with status appended.
func (w Workflow) With(status string) (Workflow, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return w, ErrEmptyStatus
	}
	if w.Contains(status) {
		return w, fmt.Errorf("%w: %q", ErrDuplicateStatus, status)
	}
	return Workflow{statuses: append(w.Statuses(), status)}, nil
}

// Without returns a workflow with status removed.
func (w Workflow) Without(status string) (Workflow, error) {
	idx := slices.Index(w.statuses, status)
	if idx == -1 {
		return w, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	return Workflow{statuses: slices.Delete(w.Statuses(), idx, idx+1)}, nil
}
