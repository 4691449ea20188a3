package api

import (
	"context"
	"fmt"

	authdomain "miinplanner-backend/internal/auth/domain"
	authrepo "miinplanner-backend/internal/auth/repository"
	reminderdomain "miinplanner-backend/internal/reminder/domain"
	reminderrepo "miinplanner-backend/internal/reminder/repository"
	socialdomain "miinplanner-backend/internal/social/domain"
	socialrepo "miinplanner-backend/internal/social/repository"
	taskdomain "miinplanner-backend/internal/task/domain"
	taskrepo "miinplanner-backend/internal/task/repository"
	spacedomain "miinplanner-backend/internal/taskspace/domain"
	spacerepo "miinplanner-backend/internal/taskspace/repository"
	"miinplanner-backend/pkg/config"
	"miinplanner-backend/pkg/store"

	firebase "firebase.google.com/go/v4"
)

// Stores groups the repositories of one storage backend
type Stores struct {
	Tasks     taskrepo.TaskRepository
	Posts     socialrepo.PostRepository
	Spaces    spacerepo.SpaceRepository
	Reminders reminderrepo.ReminderRepository
	Profiles  authrepo.ProfileRepository
	Tokens    authrepo.FCMTokenRepository

	close func() error
}

// NewStores opens the backend named by cfg.StoreDriver. Firestore needs
// app; the relational drivers migrate their schema on open.
func NewStores(ctx context.Context, cfg *config.Config, app *firebase.App) (*Stores, error) {
	switch cfg.StoreDriver {
	case "firestore":
		if app == nil {
			return nil, fmt.Errorf("firestore store requires Firebase to be configured")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open firestore: %w", err)
		}
		return &Stores{
			Tasks:     taskrepo.NewFirestoreTaskRepository(client),
			Posts:     socialrepo.NewFirestorePostRepository(client),
			Spaces:    spacerepo.NewFirestoreSpaceRepository(client),
			Reminders: reminderrepo.NewFirestoreReminderRepository(client),
			Profiles:  authrepo.NewFirestoreProfileRepository(client),
			Tokens:    authrepo.NewFirestoreFCMTokenRepository(client),
			close:     client.Close,
		}, nil

	case "postgres", "sqlite":
		dsn := cfg.DatabaseURL
		if cfg.StoreDriver == "sqlite" {
			dsn = cfg.SQLitePath
		}
		db, err := store.Open(cfg.StoreDriver, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(
			&taskdomain.Task{},
			&socialdomain.Post{},
			&spacedomain.TaskSpace{},
			&reminderdomain.Reminder{},
			&authdomain.Profile{},
			&authdomain.FCMToken{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		return &Stores{
			Tasks:     taskrepo.NewGormTaskRepository(db),
			Posts:     socialrepo.NewGormPostRepository(db),
			Spaces:    spacerepo.NewGormSpaceRepository(db),
			Reminders: reminderrepo.NewGormReminderRepository(db),
			Profiles:  authrepo.NewProfileRepository(db),
			Tokens:    authrepo.NewFCMTokenRepository(db),
			close:     sqlDB.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
