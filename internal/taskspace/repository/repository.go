package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	taskdomain "miinplanner-backend/internal/task/domain"
	"miinplanner-backend/internal/taskspace/domain"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// SpaceRepository defines owner-scoped access to task spaces
type SpaceRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.TaskSpace, error)
	Get(ctx context.Context, userID, id string) (*domain.TaskSpace, error)
	Create(ctx context.Context, space *domain.TaskSpace) error
	Delete(ctx context.Context, userID, id string) error
}

type gormSpaceRepository struct {
	db *gorm.DB
}

func NewGormSpaceRepository(db *gorm.DB) SpaceRepository {
	return &gormSpaceRepository{db: db}
}

func (r *gormSpaceRepository) ListByUser(ctx context.Context, userID string) ([]domain.TaskSpace, error) {
	spaces := []domain.TaskSpace{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&spaces).Error
	return spaces, err
}

func (r *gormSpaceRepository) Get(ctx context.Context, userID, id string) (*domain.TaskSpace, error) {
	var space domain.TaskSpace
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&space).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSpaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &space, nil
}

func (r *gormSpaceRepository) Create(ctx context.Context, space *domain.TaskSpace) error {
	space.ID = uuid.New().String()
	space.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(space).Error
}

func (r *gormSpaceRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.TaskSpace{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSpaceNotFound
	}
	return nil
}

// firestoreSpaceRepository nests spaces under users/{uid}/taskSpaces, so
// ownership is given by the path.
type firestoreSpaceRepository struct {
	client *firestore.Client
}

func NewFirestoreSpaceRepository(client *firestore.Client) SpaceRepository {
	return &firestoreSpaceRepository{client: client}
}

func (r *firestoreSpaceRepository) collection(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("taskSpaces")
}

func (r *firestoreSpaceRepository) ListByUser(ctx context.Context, userID string) ([]domain.TaskSpace, error) {
	iter := r.collection(userID).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	spaces := []domain.TaskSpace{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list task spaces: %w", err)
		}
		spaces = append(spaces, fromDocument(snap.Ref.ID, userID, snap.Data()))
	}
	return spaces, nil
}

func (r *firestoreSpaceRepository) Get(ctx context.Context, userID, id string) (*domain.TaskSpace, error) {
	snap, err := r.collection(userID).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrSpaceNotFound
	}
	if err != nil {
		return nil, err
	}
	space := fromDocument(snap.Ref.ID, userID, snap.Data())
	return &space, nil
}

func (r *firestoreSpaceRepository) Create(ctx context.Context, space *domain.TaskSpace) error {
	ref := r.collection(space.UserID).NewDoc()
	space.ID = ref.ID
	space.CreatedAt = time.Now().UTC()
	_, err := ref.Create(ctx, toDocument(*space))
	return err
}

func (r *firestoreSpaceRepository) Delete(ctx context.Context, userID, id string) error {
	ref := r.collection(userID).Doc(id)
	if _, err := ref.Get(ctx); status.Code(err) == codes.NotFound {
		return domain.ErrSpaceNotFound
	} else if err != nil {
		return err
	}
	_, err := ref.Delete(ctx)
	return err
}

func toDocument(s domain.TaskSpace) map[string]interface{} {
	tasks := make([]interface{}, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		tags := t.Tags
		if tags == nil {
			tags = []string{}
		}
		tasks = append(tasks, map[string]interface{}{
			"title":       t.Title,
			"description": nullable(t.Description),
			"priority":    string(t.Priority),
			"status":      t.Status,
			"startDate":   nullable(t.StartDate),
			"dueDate":     nullable(t.DueDate),
			"channel":     nullable(t.Channel),
			"assignee":    nullable(t.Assignee),
			"tags":        tags,
			"completed":   t.Completed,
			"archived":    t.Archived,
			"order":       t.Order,
		})
	}
	doc := map[string]interface{}{
		"name":      s.Name,
		"tasks":     tasks,
		"createdAt": s.CreatedAt,
	}
	if len(s.TaskStatuses) > 0 {
		doc["taskStatuses"] = []string(s.TaskStatuses)
	}
	return doc
}

func fromDocument(id, userID string, data map[string]interface{}) domain.TaskSpace {
	s := domain.TaskSpace{ID: id, UserID: userID, Tasks: domain.Snapshots{}}
	s.Name, _ = data["name"].(string)
	if ts, ok := data["createdAt"].(time.Time); ok {
		s.CreatedAt = ts
	}
	if raw, ok := data["taskStatuses"].([]interface{}); ok {
		for _, v := range raw {
			if str, ok := v.(string); ok {
				s.TaskStatuses = append(s.TaskStatuses, str)
			}
		}
	}
	raw, _ := data["tasks"].([]interface{})
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		snap := domain.TaskSnapshot{
			Title:       asString(m["title"]),
			Description: asStringPtr(m["description"]),
			Priority:    taskdomain.Priority(asString(m["priority"])),
			Status:      asString(m["status"]),
			StartDate:   asStringPtr(m["startDate"]),
			DueDate:     asStringPtr(m["dueDate"]),
			Channel:     asStringPtr(m["channel"]),
			Assignee:    asStringPtr(m["assignee"]),
			Tags:        []string{},
		}
		snap.Completed, _ = m["completed"].(bool)
		snap.Archived, _ = m["archived"].(bool)
		switch o := m["order"].(type) {
		case float64:
			snap.Order = o
		case int64:
			snap.Order = float64(o)
		}
		if tags, ok := m["tags"].([]interface{}); ok {
			for _, tag := range tags {
				if str, ok := tag.(string); ok {
					snap.Tags = append(snap.Tags, str)
				}
			}
		}
		s.Tasks = append(s.Tasks, snap)
	}
	return s
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asStringPtr(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
