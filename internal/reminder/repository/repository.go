package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"miinplanner-backend/internal/reminder/domain"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// ReminderRepository defines access to reminders
type ReminderRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Reminder, error)
	Create(ctx context.Context, r *domain.Reminder) error
	Delete(ctx context.Context, userID, id string) error
	SetTriggered(ctx context.Context, userID, id string, triggered bool) error

	// FindDue returns untriggered reminders of every user due at or before now
	FindDue(ctx context.Context, now time.Time) ([]domain.Reminder, error)
}

type gormReminderRepository struct {
	db *gorm.DB
}

func NewGormReminderRepository(db *gorm.DB) ReminderRepository {
	return &gormReminderRepository{db: db}
}

func (r *gormReminderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Reminder, error) {
	reminders := []domain.Reminder{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("remind_at ASC").Find(&reminders).Error
	return reminders, err
}

func (r *gormReminderRepository) Create(ctx context.Context, rem *domain.Reminder) error {
	rem.ID = uuid.New().String()
	rem.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(rem).Error
}

func (r *gormReminderRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Reminder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *gormReminderRepository) SetTriggered(ctx context.Context, userID, id string, triggered bool) error {
	res := r.db.WithContext(ctx).Model(&domain.Reminder{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("triggered", triggered)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *gormReminderRepository) FindDue(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	var reminders []domain.Reminder
	err := r.db.WithContext(ctx).
		Where("remind_at <= ? AND triggered = ?", now.UTC(), false).
		Order("remind_at ASC").
		Find(&reminders).Error
	return reminders, err
}

const remindersCollection = "reminders"

type firestoreReminderRepository struct {
	client *firestore.Client
}

func NewFirestoreReminderRepository(client *firestore.Client) ReminderRepository {
	return &firestoreReminderRepository{client: client}
}

func (r *firestoreReminderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Reminder, error) {
	return r.collect(r.client.Collection(remindersCollection).
		Where("userId", "==", userID).
		OrderBy("remindAt", firestore.Asc).
		Documents(ctx))
}

func (r *firestoreReminderRepository) FindDue(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	return r.collect(r.client.Collection(remindersCollection).
		Where("triggered", "==", false).
		Where("remindAt", "<=", now.UTC()).
		Documents(ctx))
}

func (r *firestoreReminderRepository) collect(iter *firestore.DocumentIterator) ([]domain.Reminder, error) {
	defer iter.Stop()
	reminders := []domain.Reminder{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list reminders: %w", err)
		}
		reminders = append(reminders, fromDocument(snap.Ref.ID, snap.Data()))
	}
	return reminders, nil
}

func (r *firestoreReminderRepository) Create(ctx context.Context, rem *domain.Reminder) error {
	ref := r.client.Collection(remindersCollection).NewDoc()
	rem.ID = ref.ID
	rem.CreatedAt = time.Now().UTC()
	_, err := ref.Create(ctx, toDocument(*rem))
	return err
}

func (r *firestoreReminderRepository) owned(ctx context.Context, userID, id string) (*firestore.DocumentRef, error) {
	ref := r.client.Collection(remindersCollection).Doc(id)
	snap, err := ref.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrReminderNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner, _ := snap.Data()["userId"].(string); owner != userID {
		return nil, domain.ErrReminderNotFound
	}
	return ref, nil
}

func (r *firestoreReminderRepository) Delete(ctx context.Context, userID, id string) error {
	ref, err := r.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	_, err = ref.Delete(ctx)
	return err
}

func (r *firestoreReminderRepository) SetTriggered(ctx context.Context, userID, id string, triggered bool) error {
	ref, err := r.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	_, err = ref.Update(ctx, []firestore.Update{{Path: "triggered", Value: triggered}})
	return err
}

func toDocument(r domain.Reminder) map[string]interface{} {
	var taskID interface{}
	if r.TaskID != nil {
		taskID = *r.TaskID
	}
	return map[string]interface{}{
		"userId":    r.UserID,
		"title":     r.Title,
		"remindAt":  r.RemindAt,
		"triggered": r.Triggered,
		"taskId":    taskID,
		"createdAt": r.CreatedAt,
	}
}

func fromDocument(id string, data map[string]interface{}) domain.Reminder {
	r := domain.Reminder{ID: id}
	r.UserID, _ = data["userId"].(string)
	r.Title, _ = data["title"].(string)
	r.Triggered, _ = data["triggered"].(bool)
	switch v := data["remindAt"].(type) {
	case time.Time:
		r.RemindAt = v
	case string:
		r.RemindAt, _ = time.Parse(time.RFC3339, v)
	}
	if ts, ok := data["createdAt"].(time.Time); ok {
		r.CreatedAt = ts
	}
	if s, ok := data["taskId"].(string); ok && s != "" {
		r.TaskID = &s
	}
	return r
}
