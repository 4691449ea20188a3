package usecase

import (
	"context"

	"miinplanner-backend/internal/task/domain"
)

// SemanticIndex stores task embeddings for semantic search
type SemanticIndex interface {
	UpsertTask(ctx context.Context, task domain.Task) error
	DeleteTask(ctx context.Context, taskID string) error
	SearchTasks(ctx context.Context, userID, query string, limit int) ([]string, error)
}

// Indexer keeps the semantic index in step with task writes. Writes are
// queued and never block the caller.
type Indexer interface {
	Index(task domain.Task)
	Remove(taskID string)
	Search(ctx context.Context, userID, query string, limit int) ([]string, error)
}
