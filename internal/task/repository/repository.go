package repository

import (
	"context"

	"miinplanner-backend/internal/task/domain"
)

// TaskRepository defines the interface for task data access. Every method
// is scoped to the owning user.
type TaskRepository interface {
	// ListByUser returns all tasks for a user, archived ones included,
	// ordered by order ascending then creation time descending.
	ListByUser(ctx context.Context, userID string) ([]domain.Task, error)

	// Create persists a new task and fills in its id and timestamps.
	Create(ctx context.Context, task *domain.Task) error

	// Update applies a partial update to a task owned by userID.
	Update(ctx context.Context, userID, id string, patch domain.Patch) error

	// Delete removes a task owned by userID.
	Delete(ctx context.Context, userID, id string) error

	// ReplaceAll atomically deletes every task of userID and inserts tasks.
	ReplaceAll(ctx context.Context, userID string, tasks []domain.Task) error
}
