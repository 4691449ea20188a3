package workspace

import (
	"context"
	"errors"
	"slices"
	"strings"

	taskdomain "miinplanner-backend/internal/task/domain"
	spacedomain "miinplanner-backend/internal/taskspace/domain"

	"go.uber.org/zap"
)

// SaveCurrentTaskSpace stores the cached tasks and workflow as a new
// named space
func (w *Workspace) SaveCurrentTaskSpace(ctx context.Context, name string) (*spacedomain.TaskSpace, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid(spacedomain.ErrNameRequired)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureTasksLocked(ctx, uid); err != nil {
		return nil, err
	}
	if _, err := w.workflowLocked(ctx, uid); err != nil {
		return nil, err
	}

	space := &spacedomain.TaskSpace{
		UserID:       uid,
		Name:         name,
		Tasks:        make(spacedomain.Snapshots, 0, len(w.tasks)),
		TaskStatuses: taskdomain.StringArray(slices.Clone(w.statuses)),
	}
	for _, t := range w.tasks {
		space.Tasks = append(space.Tasks, spacedomain.Snapshot(t))
	}
	if err := w.deps.Spaces.Create(ctx, space); err != nil {
		w.log.Error("failed to save task space", zap.Error(err))
		return nil, userError("Failed to save task space", err)
	}
	return space, nil
}

// LoadTaskSpace replaces the workflow and every task with the contents of
// a saved space
func (w *Workspace) LoadTaskSpace(ctx context.Context, id string) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	space, err := w.deps.Spaces.Get(ctx, uid, id)
	if err != nil {
		if errors.Is(err, spacedomain.ErrSpaceNotFound) {
			return userError("Task space not found", err)
		}
		return userError("Failed to load task space", err)
	}
	return w.loadSpaceLocked(ctx, uid, *space)
}

// ImportTaskSpace saves an external space as new and then loads it
func (w *Workspace) ImportTaskSpace(ctx context.Context, space spacedomain.TaskSpace) (*spacedomain.TaskSpace, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	space.Name = strings.TrimSpace(space.Name)
	if space.Name == "" {
		return nil, invalid(spacedomain.ErrNameRequired)
	}
	space.UserID = uid
	if space.Tasks == nil {
		space.Tasks = spacedomain.Snapshots{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.deps.Spaces.Create(ctx, &space); err != nil {
		w.log.Error("failed to import task space", zap.Error(err))
		return nil, userError("Failed to import task space", err)
	}
	if err := w.loadSpaceLocked(ctx, uid, space); err != nil {
		return nil, err
	}
	return &space, nil
}

func (w *Workspace) loadSpaceLocked(ctx context.Context, uid string, space spacedomain.TaskSpace) error {
	var previousStatuses []string
	if len(space.TaskStatuses) > 0 {
		current, err := w.deps.Profiles.Statuses(ctx, uid)
		if err != nil {
			w.log.Error("failed to read statuses", zap.String("spaceId", space.ID), zap.Error(err))
			return userError("Failed to load task space", err)
		}
		previousStatuses = current
		if err := w.deps.Profiles.UpdateStatuses(ctx, uid, []string(space.TaskStatuses)); err != nil {
			w.log.Error("failed to restore statuses", zap.String("spaceId", space.ID), zap.Error(err))
			return userError("Failed to load task space", err)
		}
	}

	tasks := space.RestoreTasks()
	for i := range tasks {
		tasks[i].UserID = uid
	}
	previous := taskdomain.CloneTasks(w.tasks)
	if err := w.deps.Tasks.ReplaceAll(ctx, uid, tasks); err != nil {
		w.log.Error("failed to replace tasks", zap.String("spaceId", space.ID), zap.Error(err))
		// the old tasks are still stored, so the old workflow must be too
		if previousStatuses != nil {
			if rerr := w.deps.Profiles.UpdateStatuses(ctx, uid, previousStatuses); rerr != nil {
				w.log.Error("failed to roll back statuses", zap.String("spaceId", space.ID), zap.Error(rerr))
			}
		}
		return userError("Failed to load task space", err)
	}
	for _, t := range previous {
		w.unindexTask(t.ID)
	}

	if err := w.fetchStatusesLocked(ctx, uid); err != nil {
		return err
	}
	if err := w.fetchTasksLocked(ctx, uid); err != nil {
		return err
	}
	for _, t := range w.tasks {
		w.indexTask(t)
	}
	w.log.Info("task space loaded", zap.String("spaceId", space.ID), zap.Int("tasks", len(tasks)))
	return nil
}

// TaskSpaces lists the saved spaces, newest first
func (w *Workspace) TaskSpaces(ctx context.Context) ([]spacedomain.Summary, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	spaces, err := w.deps.Spaces.ListByUser(ctx, uid)
	if err != nil {
		w.log.Error("failed to list task spaces", zap.Error(err))
		return nil, userError("Failed to load task spaces", err)
	}
	summaries := make([]spacedomain.Summary, 0, len(spaces))
	for _, s := range spaces {
		summaries = append(summaries, s.Summary())
	}
	return summaries, nil
}

func (w *Workspace) DeleteTaskSpace(ctx context.Context, id string) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	if err := w.deps.Spaces.Delete(ctx, uid, id); err != nil {
		if errors.Is(err, spacedomain.ErrSpaceNotFound) {
			return userError("Task space not found", err)
		}
		w.log.Error("failed to delete task space", zap.String("spaceId", id), zap.Error(err))
		return userError("Failed to delete task space", err)
	}
	return nil
}

// ExportTaskSpace renders a saved space as an export document
func (w *Workspace) ExportTaskSpace(ctx context.Context, id string) ([]byte, string, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, "", err
	}
	space, err := w.deps.Spaces.Get(ctx, uid, id)
	if err != nil {
		if errors.Is(err, spacedomain.ErrSpaceNotFound) {
			return nil, "", userError("Task space not found", err)
		}
		return nil, "", userError("Failed to export task space", err)
	}
	data, err := spacedomain.Encode(*space, w.deps.Now())
	if err != nil {
		return nil, "", userError("Failed to export task space", err)
	}
	return data, space.Name, nil
}
