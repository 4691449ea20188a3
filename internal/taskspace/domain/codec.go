package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ExportFile is the JSON document written by export and read by import
type ExportFile struct {
	Name         string         `json:"name" validate:"required"`
	Tasks        []TaskSnapshot `json:"tasks" validate:"required,dive"`
	TaskStatuses []string       `json:"taskStatuses,omitempty" validate:"omitempty,dive,required"`
	ExportedAt   *time.Time     `json:"exportedAt,omitempty"`
}

// Encode renders a space as an indented export document
func Encode(space TaskSpace, now time.Time) ([]byte, error) {
	tasks := []TaskSnapshot(space.Tasks)
	if tasks == nil {
		tasks = []TaskSnapshot{}
	}
	exported := now.UTC()
	return json.MarshalIndent(ExportFile{
		Name:         space.Name,
		Tasks:        tasks,
		TaskStatuses: []string(space.TaskStatuses),
		ExportedAt:   &exported,
	}, "", "  ")
}

// Decode parses and validates an export document into an unsaved space.
// The document needs a name and a tasks array whose entries have titles.
func Decode(data []byte) (*TaskSpace, error) {
	var file ExportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid task space file: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid task space file: %w", err)
	}
	return &TaskSpace{
		Name:         file.Name,
		Tasks:        Snapshots(file.Tasks),
		TaskStatuses: file.TaskStatuses,
	}, nil
}
