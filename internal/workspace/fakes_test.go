package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"miinplanner-backend/internal/flows"
	socialdomain "miinplanner-backend/internal/social/domain"
	taskdomain "miinplanner-backend/internal/task/domain"
	spacedomain "miinplanner-backend/internal/taskspace/domain"
)

var errStore = errors.New("store unavailable")

type fakeTasks struct {
	mu      sync.Mutex
	tasks   []taskdomain.Task
	seq     int
	clock   time.Time
	calls   int
	failOn  map[string]error
	updates []taskdomain.Patch

	// when set, ListByUser signals listStarted and waits on listRelease
	listStarted chan struct{}
	listRelease chan struct{}
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{clock: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC), failOn: map[string]error{}}
}

func (f *fakeTasks) call(op string) error {
	f.calls++
	return f.failOn[op]
}

func (f *fakeTasks) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeTasks) ListByUser(_ context.Context, uid string) ([]taskdomain.Task, error) {
	if f.listStarted != nil {
		f.listStarted <- struct{}{}
		<-f.listRelease
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("list"); err != nil {
		return nil, err
	}
	var out []taskdomain.Task
	for _, t := range f.tasks {
		if t.UserID == uid {
			out = append(out, t.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeTasks) Create(_ context.Context, t *taskdomain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("create"); err != nil {
		return err
	}
	f.seq++
	t.ID = fmt.Sprintf("t%d", f.seq)
	now := f.tick()
	t.CreatedAt, t.UpdatedAt = now, now
	f.tasks = append(f.tasks, t.Clone())
	return nil
}

func (f *fakeTasks) Update(_ context.Context, uid, id string, p taskdomain.Patch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("update"); err != nil {
		return err
	}
	for i, t := range f.tasks {
		if t.ID == id && t.UserID == uid {
			f.tasks[i] = p.Apply(t)
			f.tasks[i].UpdatedAt = f.tick()
			f.updates = append(f.updates, p)
			return nil
		}
	}
	return taskdomain.ErrTaskNotFound
}

func (f *fakeTasks) Delete(_ context.Context, uid, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("delete"); err != nil {
		return err
	}
	for i, t := range f.tasks {
		if t.ID == id && t.UserID == uid {
			f.tasks = slices.Delete(f.tasks, i, i+1)
			return nil
		}
	}
	return taskdomain.ErrTaskNotFound
}

func (f *fakeTasks) ReplaceAll(_ context.Context, uid string, tasks []taskdomain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("replace"); err != nil {
		return err
	}
	kept := f.tasks[:0]
	for _, t := range f.tasks {
		if t.UserID != uid {
			kept = append(kept, t)
		}
	}
	f.tasks = kept
	for _, t := range tasks {
		f.seq++
		t.ID = fmt.Sprintf("t%d", f.seq)
		t.UserID = uid
		now := f.tick()
		t.CreatedAt, t.UpdatedAt = now, now
		f.tasks = append(f.tasks, t.Clone())
	}
	return nil
}

// seed stores a task directly, bypassing call counting
func (f *fakeTasks) seed(t taskdomain.Task) taskdomain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if t.ID == "" {
		t.ID = fmt.Sprintf("t%d", f.seq)
	}
	if t.CreatedAt.IsZero() {
		now := f.tick()
		t.CreatedAt, t.UpdatedAt = now, now
	}
	if t.Priority == "" {
		t.Priority = taskdomain.PriorityMedium
	}
	if t.Order == 0 {
		t.Order = float64(f.seq)
	}
	t.Normalize()
	f.tasks = append(f.tasks, t)
	return t
}

type fakeProfiles struct {
	mu       sync.Mutex
	statuses map[string][]string
	calls    int
	err      error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{statuses: map[string][]string{}}
}

func (f *fakeProfiles) Statuses(_ context.Context, uid string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s, ok := f.statuses[uid]
	if !ok {
		return slices.Clone(taskdomain.DefaultStatuses), nil
	}
	return slices.Clone(s), nil
}

func (f *fakeProfiles) UpdateStatuses(_ context.Context, uid string, statuses []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.statuses[uid] = slices.Clone(statuses)
	return nil
}

type fakeSpaces struct {
	mu     sync.Mutex
	spaces []spacedomain.TaskSpace
	calls  int
}

func (f *fakeSpaces) ListByUser(_ context.Context, uid string) ([]spacedomain.TaskSpace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []spacedomain.TaskSpace
	for _, s := range f.spaces {
		if s.UserID == uid {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSpaces) Get(_ context.Context, uid, id string) (*spacedomain.TaskSpace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, s := range f.spaces {
		if s.ID == id && s.UserID == uid {
			cp := s
			return &cp, nil
		}
	}
	return nil, spacedomain.ErrSpaceNotFound
}

func (f *fakeSpaces) Create(_ context.Context, s *spacedomain.TaskSpace) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s.ID = fmt.Sprintf("s%d", len(f.spaces)+1)
	s.CreatedAt = time.Now()
	f.spaces = append(f.spaces, *s)
	return nil
}

func (f *fakeSpaces) Delete(_ context.Context, uid, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i, s := range f.spaces {
		if s.ID == id && s.UserID == uid {
			f.spaces = slices.Delete(f.spaces, i, i+1)
			return nil
		}
	}
	return spacedomain.ErrSpaceNotFound
}

type fakePosts struct {
	mu    sync.Mutex
	posts []socialdomain.Post
	calls int
}

func (f *fakePosts) ListByUser(_ context.Context, uid string) ([]socialdomain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	var out []socialdomain.Post
	for _, p := range f.posts {
		if p.UserID == uid {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePosts) Create(_ context.Context, p *socialdomain.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p.ID = fmt.Sprintf("p%d", len(f.posts)+1)
	f.posts = append(f.posts, *p)
	return nil
}

func (f *fakePosts) Get(_ context.Context, uid, id string) (*socialdomain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for _, p := range f.posts {
		if p.ID == id && p.UserID == uid {
			cp := p
			return &cp, nil
		}
	}
	return nil, socialdomain.ErrPostNotFound
}

func (f *fakePosts) Update(_ context.Context, p *socialdomain.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i, existing := range f.posts {
		if existing.ID == p.ID && existing.UserID == p.UserID {
			f.posts[i] = *p
			return nil
		}
	}
	return socialdomain.ErrPostNotFound
}

func (f *fakePosts) Delete(_ context.Context, uid, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i, p := range f.posts {
		if p.ID == id && p.UserID == uid {
			f.posts = slices.Delete(f.posts, i, i+1)
			return nil
		}
	}
	return socialdomain.ErrPostNotFound
}

type fakeAI struct {
	mu             sync.Mutex
	insights       *flows.FullInsights
	insightsErr    error
	insightsCalls  int
	greeting       flows.Result[string]
	greetingErr    error
	greetingCalls  int
	lastGreetingIn flows.GreetingInput
}

func (f *fakeAI) GenerateInsights(_ context.Context, _ []taskdomain.Task) (*flows.FullInsights, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insightsCalls++
	return f.insights, f.insightsErr
}

func (f *fakeAI) Greeting(_ context.Context, in flows.GreetingInput) (flows.Result[string], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.greetingCalls++
	f.lastGreetingIn = in
	if f.greetingErr != nil {
		return flows.Result[string]{}, f.greetingErr
	}
	return f.greeting, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[string]taskdomain.Task
	removed []string
	results []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[string]taskdomain.Task{}}
}

func (f *fakeIndex) Index(t taskdomain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[t.ID] = t
}

func (f *fakeIndex) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	f.removed = append(f.removed, id)
}

func (f *fakeIndex) Search(_ context.Context, _, _ string, _ int) ([]string, error) {
	return f.results, nil
}
