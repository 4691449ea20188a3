package repository

import (
	"context"
	"errors"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, userID, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteTokensByUserID(ctx context.Context, userID string) error
}

// fcmTokenRepository implements FCMTokenRepository interface
type fcmTokenRepository struct {
	db *gorm.DB
}

// NewFCMTokenRepository creates a new instance of fcmTokenRepository
func NewFCMTokenRepository(db *gorm.DB) FCMTokenRepository {
	return &fcmTokenRepository{db: db}
}

// SaveToken saves or updates an FCM token for a user (atomic upsert)
func (r *fcmTokenRepository) SaveToken(ctx context.Context, userID, token, deviceInfo string) error {
	now := time.Now().UTC()
	fcmToken := &authdomain.FCMToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "device_info", "updated_at"}),
	}).Create(fcmToken).Error
}

func (r *fcmTokenRepository) GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error) {
	var tokens []authdomain.FCMToken
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *fcmTokenRepository) DeleteToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&authdomain.FCMToken{}).Error
}

func (r *fcmTokenRepository) DeleteTokensByUserID(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&authdomain.FCMToken{}).Error
}

const fcmTokensCollection = "fcmTokens"

// firestoreFCMTokenRepository keys token documents by the token itself so
// re-registering a device overwrites the previous owner.
type firestoreFCMTokenRepository struct {
	client *firestore.Client
}

func NewFirestoreFCMTokenRepository(client *firestore.Client) FCMTokenRepository {
	return &firestoreFCMTokenRepository{client: client}
}

func (r *firestoreFCMTokenRepository) SaveToken(ctx context.Context, userID, token, deviceInfo string) error {
	now := time.Now().UTC()
	_, err := r.client.Collection(fcmTokensCollection).Doc(token).Set(ctx, map[string]interface{}{
		"userId":     userID,
		"token":      token,
		"deviceInfo": deviceInfo,
		"createdAt":  now,
		"updatedAt":  now,
	})
	return err
}

func (r *firestoreFCMTokenRepository) GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error) {
	iter := r.client.Collection(fcmTokensCollection).Where("userId", "==", userID).Documents(ctx)
	defer iter.Stop()

	var tokens []authdomain.FCMToken
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		data := snap.Data()
		t := authdomain.FCMToken{
			ID:         snap.Ref.ID,
			UserID:     asString(data["userId"]),
			Token:      asString(data["token"]),
			DeviceInfo: asString(data["deviceInfo"]),
		}
		if ts, ok := data["createdAt"].(time.Time); ok {
			t.CreatedAt = ts
		}
		if ts, ok := data["updatedAt"].(time.Time); ok {
			t.UpdatedAt = ts
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (r *firestoreFCMTokenRepository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.client.Collection(fcmTokensCollection).Doc(token).Delete(ctx)
	return err
}

func (r *firestoreFCMTokenRepository) DeleteTokensByUserID(ctx context.Context, userID string) error {
	tokens, err := r.GetTokensByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if err := r.DeleteToken(ctx, t.Token); err != nil {
			return err
		}
	}
	return nil
}
