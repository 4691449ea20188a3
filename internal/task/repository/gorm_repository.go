package repository

import (
	"context"
	"time"

	"miinplanner-backend/internal/task/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// columns maps patch field names to table columns
var columns = map[string]string{
	"title":       "title",
	"description": "description",
	"priority":    "priority",
	"status":      "status",
	"startDate":   "start_date",
	"dueDate":     "due_date",
	"channel":     "channel",
	"assignee":    "assignee",
	"tags":        "tags",
	"archived":    "archived",
	"order":       "sort_order",
	"completed":   "completed",
}

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sort_order ASC, created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		if tasks[i].Tags == nil {
			tasks[i].Tags = domain.StringArray{}
		}
	}
	return tasks, nil
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	prepareNew(task, time.Now().UTC())
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *gormTaskRepository) Update(ctx context.Context, userID, id string, patch domain.Patch) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	for field, value := range patch.WithDerived().Fields() {
		if tags, ok := value.([]string); ok {
			value = domain.StringArray(tags)
		}
		updates[columns[field]] = value
	}

	res := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *gormTaskRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *gormTaskRepository) ReplaceAll(ctx context.Context, userID string, tasks []domain.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&domain.Task{}).Error; err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		now := time.Now().UTC()
		rows := make([]domain.Task, len(tasks))
		for i, t := range tasks {
			t = t.Clone()
			t.ID = ""
			t.UserID = userID
			prepareNew(&t, now)
			rows[i] = t
		}
		return tx.Create(&rows).Error
	})
}

// prepareNew assigns identity, timestamps and defaults to a task about to
// be inserted.
func prepareNew(task *domain.Task, now time.Time) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if task.Status == "" {
		task.Status = domain.DefaultStatuses[0]
	}
	if task.Order == 0 {
		task.Order = float64(now.UnixMilli())
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	task.Normalize()
}
