package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"miinplanner-backend/internal/task/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func strPtr(s string) *string { return &s }

func TestBuildTaskDefaults(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	task, err := BuildTask("u1", domain.Input{Title: "  Launch  ", Tags: []string{"a", " ", "b"}, Description: strPtr("")}, domain.NewWorkflow(nil), now)
	require.NoError(t, err)

	assert.Equal(t, "Launch", task.Title)
	assert.Equal(t, "To Do", task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, float64(1_700_000_000_000), task.Order)
	assert.Equal(t, domain.StringArray{"a", "b"}, task.Tags)
	assert.Nil(t, task.Description)
	assert.False(t, task.Archived)
	assert.False(t, task.Completed)
}

func TestBuildTaskValidation(t *testing.T) {
	wf := domain.NewWorkflow(nil)
	now := time.Now()

	_, err := BuildTask("u1", domain.Input{Title: "   "}, wf, now)
	assert.ErrorIs(t, err, domain.ErrTitleRequired)

	_, err = BuildTask("u1", domain.Input{Title: "x", Status: "Someday"}, wf, now)
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)

	_, err = BuildTask("u1", domain.Input{Title: "x", Priority: "Critical"}, wf, now)
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)

	_, err = BuildTask("u1", domain.Input{Title: "x", DueDate: strPtr("soon")}, wf, now)
	assert.ErrorIs(t, err, domain.ErrInvalidDate)

	task, err := BuildTask("u1", domain.Input{Title: "x", Status: "Done"}, wf, now)
	require.NoError(t, err)
	assert.True(t, task.Completed)
}

func TestValidatePatch(t *testing.T) {
	wf := domain.NewWorkflow(nil)

	_, err := ValidatePatch(domain.Patch{}, wf)
	assert.Error(t, err)

	bad := "Nope"
	_, err = ValidatePatch(domain.Patch{Status: &bad}, wf)
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)

	done := "Done"
	p, err := ValidatePatch(domain.Patch{Status: &done}, wf)
	require.NoError(t, err)
	require.NotNil(t, p.Completed)
	assert.True(t, *p.Completed)
}

type recordingIndex struct {
	mu       sync.Mutex
	upserted []string
	deleted  []string
}

func (r *recordingIndex) UpsertTask(_ context.Context, task domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted = append(r.upserted, task.ID)
	return nil
}

func (r *recordingIndex) DeleteTask(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *recordingIndex) SearchTasks(context.Context, string, string, int) ([]string, error) {
	return []string{"t1"}, nil
}

func TestIndexWorkerProcessesQueue(t *testing.T) {
	idx := &recordingIndex{}
	w := NewIndexWorkerService(idx, 2, zap.NewNop())
	w.Start()

	w.Index(domain.Task{ID: "t1"})
	w.Index(domain.Task{ID: "t2"})
	w.Remove("t3")
	w.Stop()

	assert.ElementsMatch(t, []string{"t1", "t2"}, idx.upserted)
	assert.Equal(t, []string{"t3"}, idx.deleted)

	assert.False(t, w.QueueJob(IndexJob{op: opDelete, taskID: "late"}), "stopped worker rejects jobs")
	w.Stop()

	ids, err := w.Search(context.Background(), "u1", "launch", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, ids)
}
