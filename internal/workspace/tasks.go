package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"

	taskdomain "miinplanner-backend/internal/task/domain"
	taskusecase "miinplanner-backend/internal/task/usecase"

	"go.uber.org/zap"
)

// FetchTasks reloads the task cache. On failure the previous cache is kept.
func (w *Workspace) FetchTasks(ctx context.Context) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fetchTasksLocked(ctx, uid)
}

func (w *Workspace) fetchTasksLocked(ctx context.Context, uid string) error {
	w.loading.Store(true)
	defer w.loading.Store(false)

	tasks, err := w.deps.Tasks.ListByUser(ctx, uid)
	if err != nil {
		w.log.Error("failed to fetch tasks", zap.Error(err))
		return userError("Failed to load tasks", err)
	}
	for i := range tasks {
		tasks[i].Normalize()
	}
	w.tasks = tasks
	w.loaded = true
	return nil
}

// FetchStatuses reloads the workflow from the profile
func (w *Workspace) FetchStatuses(ctx context.Context) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fetchStatusesLocked(ctx, uid)
}

func (w *Workspace) fetchStatusesLocked(ctx context.Context, uid string) error {
	statuses, err := w.deps.Profiles.Statuses(ctx, uid)
	if err != nil {
		w.log.Error("failed to fetch statuses", zap.Error(err))
		return userError("Failed to load statuses", err)
	}
	w.statuses = taskdomain.NewWorkflow(statuses).Statuses()
	return nil
}

func (w *Workspace) workflowLocked(ctx context.Context, uid string) (taskdomain.Workflow, error) {
	if w.statuses == nil {
		if err := w.fetchStatusesLocked(ctx, uid); err != nil {
			return taskdomain.Workflow{}, err
		}
	}
	return taskdomain.NewWorkflow(w.statuses), nil
}

func (w *Workspace) ensureTasksLocked(ctx context.Context, uid string) error {
	if w.loaded {
		return nil
	}
	return w.fetchTasksLocked(ctx, uid)
}

// AddTask persists a new task and reloads the list
func (w *Workspace) AddTask(ctx context.Context, in taskdomain.Input) (*taskdomain.Task, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	wf, err := w.workflowLocked(ctx, uid)
	if err != nil {
		return nil, err
	}
	task, err := taskusecase.BuildTask(uid, in, wf, w.deps.Now())
	if err != nil {
		return nil, invalid(err)
	}
	if err := w.deps.Tasks.Create(ctx, task); err != nil {
		w.log.Error("failed to add task", zap.Error(err))
		return nil, userError("Failed to add task", err)
	}
	w.indexTask(*task)

	if err := w.fetchTasksLocked(ctx, uid); err != nil {
		w.log.Warn("task added but reload failed", zap.String("taskId", task.ID), zap.Error(err))
	}
	created := task.Clone()
	return &created, nil
}

// UpdateTask patches a task in the cache, persists it and reloads the list.
// The cache is restored if the write fails.
func (w *Workspace) UpdateTask(ctx context.Context, id string, patch taskdomain.Patch) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.patchTaskLocked(ctx, uid, id, patch); err != nil {
		return err
	}
	if err := w.fetchTasksLocked(ctx, uid); err != nil {
		w.log.Warn("task updated but reload failed", zap.String("taskId", id), zap.Error(err))
	}
	return nil
}

// UpdateTaskField sets a single field, as inline editors do. The list is
// not reloaded afterwards.
func (w *Workspace) UpdateTaskField(ctx context.Context, id, field string, value interface{}) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	patch, err := taskdomain.PatchForField(field, value)
	if err != nil {
		return invalid(err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.patchTaskLocked(ctx, uid, id, patch)
}

func (w *Workspace) patchTaskLocked(ctx context.Context, uid, id string, patch taskdomain.Patch) error {
	wf, err := w.workflowLocked(ctx, uid)
	if err != nil {
		return err
	}
	patch, err = taskusecase.ValidatePatch(patch, wf)
	if err != nil {
		return invalid(err)
	}

	err = optimistic(&w.tasks, taskdomain.CloneTasks,
		func(tasks []taskdomain.Task) []taskdomain.Task {
			for i, t := range tasks {
				if t.ID == id {
					tasks[i] = patch.Apply(t)
				}
			}
			return tasks
		},
		func() error { return w.deps.Tasks.Update(ctx, uid, id, patch) },
	)
	if err != nil {
		w.log.Error("failed to update task", zap.String("taskId", id), zap.Error(err))
		return userError("Failed to update task", err)
	}
	if i := w.indexOfLocked(id); i >= 0 {
		w.indexTask(w.tasks[i])
	}
	return nil
}

// MoveTask gives a task a new status and places it at newIndex. The index
// counts positions in the whole task list, not within the target status.
// Only the status change is persisted.
func (w *Workspace) MoveTask(ctx context.Context, id, newStatus string, newIndex int) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	wf, err := w.workflowLocked(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := wf.Parse(newStatus); err != nil {
		return invalid(err)
	}
	if w.indexOfLocked(id) < 0 {
		return userError("Task not found", taskdomain.ErrTaskNotFound)
	}
	patch := taskdomain.Patch{Status: &newStatus}.WithDerived()

	err = optimistic(&w.tasks, taskdomain.CloneTasks,
		func(tasks []taskdomain.Task) []taskdomain.Task {
			idx := slices.IndexFunc(tasks, func(t taskdomain.Task) bool { return t.ID == id })
			moved := patch.Apply(tasks[idx])
			tasks = slices.Delete(tasks, idx, idx+1)
			at := min(max(newIndex, 0), len(tasks))
			return slices.Insert(tasks, at, moved)
		},
		func() error { return w.deps.Tasks.Update(ctx, uid, id, patch) },
	)
	if err != nil {
		w.log.Error("failed to move task", zap.String("taskId", id), zap.Error(err))
		return userError("Failed to move task", err)
	}
	return nil
}

// DeleteTask removes a task and reloads the list
func (w *Workspace) DeleteTask(ctx context.Context, id string) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.deps.Tasks.Delete(ctx, uid, id); err != nil {
		w.log.Error("failed to delete task", zap.String("taskId", id), zap.Error(err))
		return userError("Failed to delete task", err)
	}
	w.unindexTask(id)
	if err := w.fetchTasksLocked(ctx, uid); err != nil {
		w.log.Warn("task deleted but reload failed", zap.String("taskId", id), zap.Error(err))
	}
	return nil
}

func (w *Workspace) indexOfLocked(id string) int {
	return slices.IndexFunc(w.tasks, func(t taskdomain.Task) bool { return t.ID == id })
}

// AddStatus appends a stage to the workflow
func (w *Workspace) AddStatus(ctx context.Context, status string) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	wf, err := w.workflowLocked(ctx, uid)
	if err != nil {
		return err
	}
	next, err := wf.With(status)
	if err != nil {
		return invalid(err)
	}
	return w.replaceStatusesLocked(ctx, uid, next.Statuses(), "Failed to add status")
}

// DeleteStatus removes a stage from the workflow. It is refused while any
// cached task, archived or not, still has that status.
func (w *Workspace) DeleteStatus(ctx context.Context, status string) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.ensureTasksLocked(ctx, uid); err != nil {
		return err
	}
	inUse := 0
	for _, t := range w.tasks {
		if t.Status == status {
			inUse++
		}
	}
	if inUse > 0 {
		return &UserError{
			Message: fmt.Sprintf("Cannot delete status %q: %d task(s) still use it.", status, inUse),
			Err:     ErrStatusInUse,
		}
	}

	wf, err := w.workflowLocked(ctx, uid)
	if err != nil {
		return err
	}
	next, err := wf.Without(status)
	if err != nil {
		return invalid(err)
	}
	return w.replaceStatusesLocked(ctx, uid, next.Statuses(), "Failed to delete status")
}

func (w *Workspace) replaceStatusesLocked(ctx context.Context, uid string, next []string, failure string) error {
	err := optimistic(&w.statuses, slices.Clone[[]string],
		func([]string) []string { return slices.Clone(next) },
		func() error { return w.deps.Profiles.UpdateStatuses(ctx, uid, next) },
	)
	if err != nil {
		w.log.Error("failed to save statuses", zap.Strings("statuses", next), zap.Error(err))
		return userError(failure, err)
	}
	return nil
}

// SearchTasks matches cached tasks against query. Fuzzy mode tolerates
// typos; semantic mode asks the vector index.
func (w *Workspace) SearchTasks(ctx context.Context, query string, semantic bool, limit int) ([]taskdomain.Task, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	w.mu.Lock()
	if err := w.ensureTasksLocked(ctx, uid); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	tasks := taskdomain.CloneTasks(w.tasks)
	w.mu.Unlock()

	if !semantic {
		return fuzzySearch(tasks, query, limit), nil
	}
	if w.deps.Index == nil {
		return nil, userError("Semantic search is not available", ErrSearchUnavailable)
	}
	ids, err := w.deps.Index.Search(ctx, uid, query, limit)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		w.log.Error("semantic search failed", zap.Error(err))
		return nil, userError("Search failed", err)
	}
	byID := make(map[string]taskdomain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	results := make([]taskdomain.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			results = append(results, t)
		}
	}
	return results, nil
}
