package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"miinplanner-backend/internal/social/domain"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// PostRepository defines owner-scoped access to social posts
type PostRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Post, error)
	Create(ctx context.Context, post *domain.Post) error
	// Update stores the full post after checking ownership
	Update(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, userID, id string) (*domain.Post, error)
	Delete(ctx context.Context, userID, id string) error
}

type gormPostRepository struct {
	db *gorm.DB
}

func NewGormPostRepository(db *gorm.DB) PostRepository {
	return &gormPostRepository{db: db}
}

func (r *gormPostRepository) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	posts := []domain.Post{}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&posts).Error
	return posts, err
}

func (r *gormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()
	post.ID = uuid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *gormPostRepository) Get(ctx context.Context, userID, id string) (*domain.Post, error) {
	var post domain.Post
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *gormPostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Post{}).
		Where("id = ? AND user_id = ?", post.ID, post.UserID).
		Select("*").Omit("id", "user_id", "created_at").
		Updates(post)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *gormPostRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

const postsCollection = "socialMediaPosts"

type firestorePostRepository struct {
	client *firestore.Client
}

func NewFirestorePostRepository(client *firestore.Client) PostRepository {
	return &firestorePostRepository{client: client}
}

func (r *firestorePostRepository) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	iter := r.client.Collection(postsCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	posts := []domain.Post{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
		posts = append(posts, fromDocument(snap.Ref.ID, snap.Data()))
	}
	return posts, nil
}

func (r *firestorePostRepository) Create(ctx context.Context, post *domain.Post) error {
	ref := r.client.Collection(postsCollection).NewDoc()
	now := time.Now().UTC()
	post.ID = ref.ID
	post.CreatedAt = now
	post.UpdatedAt = now
	_, err := ref.Create(ctx, toDocument(*post))
	return err
}

func (r *firestorePostRepository) Get(ctx context.Context, userID, id string) (*domain.Post, error) {
	snap, err := r.client.Collection(postsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	post := fromDocument(snap.Ref.ID, snap.Data())
	if post.UserID != userID {
		return nil, domain.ErrPostNotFound
	}
	return &post, nil
}

func (r *firestorePostRepository) Update(ctx context.Context, post *domain.Post) error {
	if _, err := r.Get(ctx, post.UserID, post.ID); err != nil {
		return err
	}
	post.UpdatedAt = time.Now().UTC()
	_, err := r.client.Collection(postsCollection).Doc(post.ID).Set(ctx, toDocument(*post))
	return err
}

func (r *firestorePostRepository) Delete(ctx context.Context, userID, id string) error {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return err
	}
	_, err := r.client.Collection(postsCollection).Doc(id).Delete(ctx)
	return err
}

func toDocument(p domain.Post) map[string]interface{} {
	return map[string]interface{}{
		"userId":        p.UserID,
		"platform":      string(p.Platform),
		"content":       p.Content,
		"status":        string(p.Status),
		"scheduledDate": timestampOrNil(p.ScheduledDate),
		"imageUrl":      optional(p.ImageURL),
		"notes":         optional(p.Notes),
		"topic":         optional(p.Topic),
		"tone":          optional(p.Tone),
		"createdAt":     p.CreatedAt,
		"updatedAt":     p.UpdatedAt,
	}
}

func fromDocument(id string, data map[string]interface{}) domain.Post {
	p := domain.Post{
		ID:       id,
		UserID:   str(data["userId"]),
		Platform: domain.Platform(str(data["platform"])),
		Content:  str(data["content"]),
		Status:   domain.PostStatus(str(data["status"])),
		ImageURL: strPtr(data["imageUrl"]),
		Notes:    strPtr(data["notes"]),
		Topic:    strPtr(data["topic"]),
		Tone:     strPtr(data["tone"]),
	}
	switch v := data["scheduledDate"].(type) {
	case time.Time:
		s := v.UTC().Format(time.RFC3339)
		p.ScheduledDate = &s
	case string:
		p.ScheduledDate = strPtr(v)
	}
	if !p.Platform.Valid() {
		p.Platform = domain.PlatformGeneral
	}
	if !p.Status.Valid() {
		p.Status = domain.PostDraft
	}
	if ts, ok := data["createdAt"].(time.Time); ok {
		p.CreatedAt = ts
	}
	if ts, ok := data["updatedAt"].(time.Time); ok {
		p.UpdatedAt = ts
	}
	return p
}

func timestampOrNil(s *string) interface{} {
	if s == nil {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, *s); err == nil {
		return ts.UTC()
	}
	return *s
}

func optional(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}

func strPtr(v interface{}) *string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}
