package scheduler

import (
	"context"
	"fmt"
	"time"

	"miinplanner-backend/internal/reminder/domain"
	"miinplanner-backend/internal/reminder/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Publisher delivers triggered-reminder events
type Publisher interface {
	Publish(ctx context.Context, event domain.TriggeredEvent) error
}

// Scheduler runs the reminder sweep and other periodic maintenance jobs
type Scheduler struct {
	cron      *cron.Cron
	reminders repository.ReminderRepository
	publisher Publisher
	log       *zap.Logger
	now       func() time.Time
	timeout   time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(reminders repository.ReminderRepository, publisher Publisher, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC), cron.WithSeconds()),
		reminders: reminders,
		publisher: publisher,
		log:       log.Named("scheduler"),
		now:       time.Now,
		timeout:   30 * time.Second,
	}
}

// ScheduleReminders registers the reminder sweep every interval
func (s *Scheduler) ScheduleReminders(interval time.Duration) error {
	_, err := s.ScheduleInterval(interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.CheckReminders(ctx)
	})
	return err
}

// ScheduleInterval registers a periodic job every given duration.
func (s *Scheduler) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), job)
}

// ScheduleDaily registers a job at the given UTC hour
func (s *Scheduler) ScheduleDaily(hour int, job func()) (cron.EntryID, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour %d", hour)
	}
	return s.cron.AddFunc(fmt.Sprintf("0 0 %d * * *", hour), job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("stopped")
}

// CheckReminders publishes an event for every due reminder and marks it
// triggered. A reminder whose event could not be published stays pending
// and is retried on the next sweep.
func (s *Scheduler) CheckReminders(ctx context.Context) int {
	due, err := s.reminders.FindDue(ctx, s.now())
	if err != nil {
		s.log.Error("failed to find due reminders", zap.Error(err))
		return 0
	}
	if len(due) == 0 {
		return 0
	}
	s.log.Info("due reminders", zap.Int("count", len(due)))

	sent := 0
	for _, r := range due {
		if err := s.publisher.Publish(ctx, domain.NewTriggeredEvent(r)); err != nil {
			s.log.Warn("publish failed", zap.String("reminder", r.ID), zap.Error(err))
			continue
		}
		if err := s.reminders.SetTriggered(ctx, r.UserID, r.ID, true); err != nil {
			s.log.Error("failed to mark reminder triggered", zap.String("reminder", r.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
