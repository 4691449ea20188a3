package workspace

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"
	"miinplanner-backend/internal/flows"
	socialdomain "miinplanner-backend/internal/social/domain"
	socialrepo "miinplanner-backend/internal/social/repository"
	taskdomain "miinplanner-backend/internal/task/domain"
	taskrepo "miinplanner-backend/internal/task/repository"
	taskusecase "miinplanner-backend/internal/task/usecase"
	spacerepo "miinplanner-backend/internal/taskspace/repository"

	"go.uber.org/zap"
)

// ProfileStore reads and writes a user's workflow status list
type ProfileStore interface {
	Statuses(ctx context.Context, uid string) ([]string, error)
	UpdateStatuses(ctx context.Context, uid string, statuses []string) error
}

// AIFlows are the model-backed flows the workspace caches results of
type AIFlows interface {
	GenerateInsights(ctx context.Context, tasks []taskdomain.Task) (*flows.FullInsights, error)
	Greeting(ctx context.Context, in flows.GreetingInput) (flows.Result[string], error)
}

// Deps wires a workspace to its stores. Index is optional.
type Deps struct {
	Tasks    taskrepo.TaskRepository
	Profiles ProfileStore
	Spaces   spacerepo.SpaceRepository
	Posts    socialrepo.PostRepository
	AI       AIFlows
	Index    taskusecase.Indexer
	Log      *zap.Logger
	Now      func() time.Time
}

type greetingEntry struct {
	date string
	text string
}

// Workspace is one user's in-memory view of their tasks, workflow, posts
// and derived AI output. Every mutation goes through it so the cache and
// the store stay in step. Reads return copies.
type Workspace struct {
	session *authdomain.Session
	deps    Deps
	log     *zap.Logger

	// loading is read without mu so callers can observe an in-flight fetch
	loading atomic.Bool

	mu        sync.Mutex
	tasks     []taskdomain.Task
	loaded    bool
	statuses  []string
	posts     []socialdomain.Post
	insights  *Insights
	greetings map[string]greetingEntry
}

// New creates a workspace for session. A nil session yields a workspace
// whose mutators all fail with ErrNotAuthenticated.
func New(session *authdomain.Session, deps Deps) *Workspace {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := deps.Log.Named("workspace")
	if session != nil {
		log = log.With(zap.String("uid", session.UID))
	}
	return &Workspace{
		session:   session,
		deps:      deps,
		log:       log,
		greetings: make(map[string]greetingEntry),
	}
}

func (w *Workspace) uid() (string, error) {
	if w.session == nil || w.session.UID == "" {
		return "", ErrNotAuthenticated
	}
	return w.session.UID, nil
}

func (w *Workspace) today() string {
	return w.deps.Now().Format(time.DateOnly)
}

// Tasks returns a copy of the cached task list
func (w *Workspace) Tasks() []taskdomain.Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	return taskdomain.CloneTasks(w.tasks)
}

// Statuses returns a copy of the cached workflow
func (w *Workspace) Statuses() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.statuses)
}

func (w *Workspace) Posts() []socialdomain.Post {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.posts)
}

// Loading reports whether a task fetch is in flight
func (w *Workspace) Loading() bool {
	return w.loading.Load()
}

func (w *Workspace) Insights() *Insights {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.insights == nil {
		return nil
	}
	cp := *w.insights
	return &cp
}

// Greeting returns the cached greeting for page, if one was fetched today
func (w *Workspace) Greeting(page string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, ok := w.greetings[page]
	if !ok || entry.date != w.today() {
		return "", false
	}
	return entry.text, true
}

func (w *Workspace) indexTask(t taskdomain.Task) {
	if w.deps.Index != nil {
		w.deps.Index.Index(t)
	}
}

func (w *Workspace) unindexTask(id string) {
	if w.deps.Index != nil {
		w.deps.Index.Remove(id)
	}
}
