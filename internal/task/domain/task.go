package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidDate     = errors.New("invalid date")
	ErrUnknownField    = errors.New("unknown task field")
)

// Priority represents task priority level
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// ParsePriority accepts the canonical names; an empty string means Medium.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// StringArray stores a string list as a JSON text column
type StringArray []string

// Value implements driver.Valuer
func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (a *StringArray) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*a = StringArray{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported StringArray source %T", value)
	}
	if len(bytes) == 0 {
		*a = StringArray{}
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Task is a single planner item owned by one user
type Task struct {
	ID          string      `json:"id" gorm:"primaryKey"`
	UserID      string      `json:"userId" gorm:"index;not null"`
	Title       string      `json:"title" gorm:"not null"`
	Description *string     `json:"description,omitempty"`
	Priority    Priority    `json:"priority" gorm:"default:Medium"`
	Status      string      `json:"status" gorm:"index"`
	StartDate   *string     `json:"startDate,omitempty"`
	DueDate     *string     `json:"dueDate,omitempty"`
	Channel     *string     `json:"channel,omitempty"`
	Assignee    *string     `json:"assignee,omitempty"`
	Tags        StringArray `json:"tags" gorm:"type:text"`
	Completed   bool        `json:"completed"`
	Archived    bool        `json:"archived"`
	Order       float64     `json:"order" gorm:"column:sort_order"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// Clone returns a deep copy. Optional string fields are shared since they
// are never written through.
func (t Task) Clone() Task {
	t.Tags = slices.Clone(t.Tags)
	if t.Tags == nil {
		t.Tags = StringArray{}
	}
	return t
}

// Normalize keeps the derived completed flag in sync with status.
func (t *Task) Normalize() {
	t.Completed = IsTerminal(t.Status)
	if t.Tags == nil {
		t.Tags = StringArray{}
	}
}

// HasTimestamps reports whether both server timestamps are resolvable.
func (t Task) HasTimestamps() bool {
	return !t.CreatedAt.IsZero() && !t.UpdatedAt.IsZero()
}

// CloneTasks deep-copies a task list
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// ValidateDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates.
func ValidateDate(s string) error {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err == nil {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Input carries the fields accepted when creating a task
type Input struct {
	Title       string   `json:"title" binding:"required"`
	Description *string  `json:"description"`
	Priority    string   `json:"priority"`
	Status      string   `json:"status"`
	StartDate   *string  `json:"startDate"`
	DueDate     *string  `json:"dueDate"`
	Channel     *string  `json:"channel"`
	Assignee    *string  `json:"assignee"`
	Tags        []string `json:"tags"`
	Order       *float64 `json:"order"`
}
