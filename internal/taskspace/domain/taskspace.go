package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	taskdomain "miinplanner-backend/internal/task/domain"
)

var (
	ErrSpaceNotFound = errors.New("task space not found")
	ErrNameRequired  = errors.New("task space name is required")
)

// TaskSnapshot is a task stripped of identity, owner and timestamps.
// Absent optional fields are kept as explicit nulls.
type TaskSnapshot struct {
	Title       string              `json:"title" validate:"required"`
	Description *string             `json:"description"`
	Priority    taskdomain.Priority `json:"priority" validate:"omitempty,oneof=Low Medium High Urgent"`
	Status      string              `json:"status"`
	StartDate   *string             `json:"startDate"`
	DueDate     *string             `json:"dueDate"`
	Channel     *string             `json:"channel"`
	Assignee    *string             `json:"assignee"`
	Tags        []string            `json:"tags"`
	Completed   bool                `json:"completed"`
	Archived    bool                `json:"archived"`
	Order       float64             `json:"order"`
}

// Snapshot captures a task for storage in a space
func Snapshot(t taskdomain.Task) TaskSnapshot {
	tags := slices.Clone([]string(t.Tags))
	if tags == nil {
		tags = []string{}
	}
	return TaskSnapshot{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		StartDate:   t.StartDate,
		DueDate:     t.DueDate,
		Channel:     t.Channel,
		Assignee:    t.Assignee,
		Tags:        tags,
		Completed:   t.Completed,
		Archived:    t.Archived,
		Order:       t.Order,
	}
}

// Task restores a snapshot as a new, unsaved task. Completed is derived
// from status again rather than trusted.
func (s TaskSnapshot) Task() taskdomain.Task {
	t := taskdomain.Task{
		Title:       s.Title,
		Description: s.Description,
		Priority:    s.Priority,
		Status:      s.Status,
		StartDate:   s.StartDate,
		DueDate:     s.DueDate,
		Channel:     s.Channel,
		Assignee:    s.Assignee,
		Tags:        taskdomain.StringArray(slices.Clone(s.Tags)),
		Archived:    s.Archived,
		Order:       s.Order,
	}
	if !t.Priority.Valid() {
		t.Priority = taskdomain.PriorityMedium
	}
	t.Normalize()
	return t
}

// Snapshots stores a snapshot list as a JSON text column
type Snapshots []TaskSnapshot

func (s Snapshots) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *Snapshots) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*s = Snapshots{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported Snapshots source %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// TaskSpace is a named snapshot of a user's whole workspace
type TaskSpace struct {
	ID           string                 `json:"id" gorm:"primaryKey"`
	UserID       string                 `json:"userId" gorm:"index;not null"`
	Name         string                 `json:"name" gorm:"not null"`
	Tasks        Snapshots              `json:"tasks" gorm:"type:text"`
	TaskStatuses taskdomain.StringArray `json:"taskStatuses,omitempty" gorm:"type:text"`
	CreatedAt    time.Time              `json:"createdAt"`
}

func (TaskSpace) TableName() string { return "task_spaces" }

// RestoreTasks restores every snapshot as an unsaved task
func (s TaskSpace) RestoreTasks() []taskdomain.Task {
	tasks := make([]taskdomain.Task, 0, len(s.Tasks))
	for _, snap := range s.Tasks {
		tasks = append(tasks, snap.Task())
	}
	return tasks
}

// Summary is the list view of a space without its tasks
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaskCount int       `json:"taskCount"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s TaskSpace) Summary() Summary {
	return Summary{ID: s.ID, Name: s.Name, TaskCount: len(s.Tasks), CreatedAt: s.CreatedAt}
}
