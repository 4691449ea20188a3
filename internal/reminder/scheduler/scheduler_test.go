package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"miinplanner-backend/internal/reminder/domain"
	"miinplanner-backend/internal/reminder/repository"
	"miinplanner-backend/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// gorm's sqlite driver keeps a connection opener goroutine per pool
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

type recordingPublisher struct {
	events []domain.TriggeredEvent
	fail   map[string]bool
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.TriggeredEvent) error {
	if p.fail[e.ReminderID] {
		return errors.New("topic unavailable")
	}
	p.events = append(p.events, e)
	return nil
}

func newRepo(t *testing.T) repository.ReminderRepository {
	t.Helper()
	db, err := store.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Reminder{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return repository.NewGormReminderRepository(db)
}

func TestCheckRemindersPublishesDue(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	taskID := "task-1"
	due := &domain.Reminder{UserID: "u1", Title: "Send report", RemindAt: now.Add(-time.Minute), TaskID: &taskID}
	later := &domain.Reminder{UserID: "u1", Title: "Later", RemindAt: now.Add(time.Hour)}
	failing := &domain.Reminder{UserID: "u2", Title: "Flaky", RemindAt: now.Add(-2 * time.Minute)}
	for _, r := range []*domain.Reminder{due, later, failing} {
		require.NoError(t, repo.Create(ctx, r))
	}

	pub := &recordingPublisher{fail: map[string]bool{failing.ID: true}}
	s := NewScheduler(repo, pub, zap.NewNop())
	s.now = func() time.Time { return now }

	assert.Equal(t, 1, s.CheckReminders(ctx))
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.EventTriggered, pub.events[0].Type)
	assert.Equal(t, "task-1", pub.events[0].TaskID)
	assert.Equal(t, "u1", pub.events[0].UserID)

	// the failed one is retried, the sent one is not
	pub.fail = nil
	assert.Equal(t, 1, s.CheckReminders(ctx))
	assert.Equal(t, 0, s.CheckReminders(ctx))

	reminders, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, reminders, 2)
	assert.True(t, reminders[0].Triggered)
	assert.False(t, reminders[1].Triggered)
}

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(newRepo(t), &recordingPublisher{}, zap.NewNop())
	require.NoError(t, s.ScheduleReminders(time.Minute))
	_, err := s.ScheduleDaily(3, func() {})
	require.NoError(t, err)
	_, err = s.ScheduleDaily(24, func() {})
	assert.Error(t, err)
	_, err = s.ScheduleInterval(0, func() {})
	assert.Error(t, err)

	s.Start()
	s.Stop()
}
