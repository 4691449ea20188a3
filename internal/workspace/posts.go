package workspace

import (
	"context"
	"errors"
	"slices"

	socialdomain "miinplanner-backend/internal/social/domain"
	taskdomain "miinplanner-backend/internal/task/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (w *Workspace) FetchPosts(ctx context.Context) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fetchPostsLocked(ctx, uid)
}

func (w *Workspace) fetchPostsLocked(ctx context.Context, uid string) error {
	posts, err := w.deps.Posts.ListByUser(ctx, uid)
	if err != nil {
		w.log.Error("failed to fetch posts", zap.Error(err))
		return userError("Failed to load posts", err)
	}
	w.posts = posts
	return nil
}

func (w *Workspace) AddPost(ctx context.Context, in socialdomain.PostInput) (*socialdomain.Post, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	post, err := socialdomain.NewPost(uid, in)
	if err != nil {
		return nil, invalid(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.deps.Posts.Create(ctx, post); err != nil {
		w.log.Error("failed to add post", zap.Error(err))
		return nil, userError("Failed to add post", err)
	}
	if err := w.fetchPostsLocked(ctx, uid); err != nil {
		w.log.Warn("post added but reload failed", zap.Error(err))
	}
	return post, nil
}

func (w *Workspace) UpdatePost(ctx context.Context, id string, in socialdomain.PostInput) (*socialdomain.Post, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	if in.Content != nil && *in.Content == "" {
		return nil, invalid(socialdomain.ErrContentRequired)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	current, err := w.deps.Posts.Get(ctx, uid, id)
	if err != nil {
		if errors.Is(err, socialdomain.ErrPostNotFound) {
			return nil, userError("Post not found", err)
		}
		return nil, userError("Failed to update post", err)
	}
	updated := in.Apply(*current)
	if err := w.deps.Posts.Update(ctx, updated); err != nil {
		w.log.Error("failed to update post", zap.String("postId", id), zap.Error(err))
		return nil, userError("Failed to update post", err)
	}
	if err := w.fetchPostsLocked(ctx, uid); err != nil {
		w.log.Warn("post updated but reload failed", zap.Error(err))
	}
	return updated, nil
}

func (w *Workspace) DeletePost(ctx context.Context, id string) error {
	uid, err := w.uid()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.deps.Posts.Delete(ctx, uid, id); err != nil {
		if errors.Is(err, socialdomain.ErrPostNotFound) {
			return userError("Post not found", err)
		}
		w.log.Error("failed to delete post", zap.String("postId", id), zap.Error(err))
		return userError("Failed to delete post", err)
	}
	if err := w.fetchPostsLocked(ctx, uid); err != nil {
		w.log.Warn("post deleted but reload failed", zap.Error(err))
	}
	return nil
}

// Dashboard is everything the dashboard page renders on load
type Dashboard struct {
	Tasks    []taskdomain.Task   `json:"tasks"`
	Posts    []socialdomain.Post `json:"posts"`
	Statuses []string            `json:"statuses"`
}

// Dashboard loads tasks, posts and the workflow concurrently and refreshes
// the cache with all three
func (w *Workspace) Dashboard(ctx context.Context) (*Dashboard, error) {
	uid, err := w.uid()
	if err != nil {
		return nil, err
	}

	var (
		tasks    []taskdomain.Task
		posts    []socialdomain.Post
		statuses []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = w.deps.Tasks.ListByUser(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = w.deps.Posts.ListByUser(gctx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		statuses, err = w.deps.Profiles.Statuses(gctx, uid)
		return err
	})
	if err := g.Wait(); err != nil {
		w.log.Error("failed to load dashboard", zap.Error(err))
		return nil, userError("Failed to load dashboard", err)
	}

	for i := range tasks {
		tasks[i].Normalize()
	}
	statuses = taskdomain.NewWorkflow(statuses).Statuses()

	w.mu.Lock()
	w.tasks = tasks
	w.loaded = true
	w.posts = posts
	w.statuses = statuses
	w.mu.Unlock()

	return &Dashboard{
		Tasks:    taskdomain.CloneTasks(tasks),
		Posts:    slices.Clone(posts),
		Statuses: slices.Clone(statuses),
	}, nil
}
