package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"
	taskdomain "miinplanner-backend/internal/task/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usersCollection = "users"

type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository stores profiles as users/{uid} documents
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	return &firestoreProfileRepository{client: client}
}

func (r *firestoreProfileRepository) doc(uid string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(uid)
}

func (r *firestoreProfileRepository) Get(ctx context.Context, uid string) (*authdomain.Profile, error) {
	snap, err := r.doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, authdomain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profileFromDocument(uid, snap.Data()), nil
}

func (r *firestoreProfileRepository) Create(ctx context.Context, profile *authdomain.Profile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	backfill(profile)

	_, err := r.doc(profile.UID).Create(ctx, profileToDocument(*profile))
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	return err
}

func (r *firestoreProfileRepository) UpdateIdentity(ctx context.Context, uid, email, displayName string) error {
	return r.update(ctx, uid, []firestore.Update{
		{Path: "email", Value: email},
		{Path: "displayName", Value: displayName},
	})
}

func (r *firestoreProfileRepository) UpdateStatuses(ctx context.Context, uid string, statuses []string) error {
	return r.update(ctx, uid, []firestore.Update{{Path: "taskStatuses", Value: statuses}})
}

func (r *firestoreProfileRepository) update(ctx context.Context, uid string, updates []firestore.Update) error {
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: time.Now().UTC()})
	_, err := r.doc(uid).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return authdomain.ErrProfileNotFound
	}
	return err
}

func (r *firestoreProfileRepository) ConsumeUsage(ctx context.Context, uid, date string, kind authdomain.UsageKind, limit int) (int, error) {
	ref := r.doc(uid)
	var used int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return authdomain.ErrProfileNotFound
		}
		if err != nil {
			return err
		}

		counts := profileFromDocument(uid, snap.Data()).Usage[date]
		used = counts.Get(kind)
		if limit > 0 && used >= limit {
			return authdomain.ErrQuotaExceeded
		}
		used++
		return tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"usage", date, string(kind)}, Value: firestore.Increment(1)},
		})
	})
	return used, err
}

func (r *firestoreProfileRepository) PruneUsage(ctx context.Context, cutoff string) (int, error) {
	iter := r.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	removed := 0
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return removed, err
		}

		var updates []firestore.Update
		for date := range profileFromDocument(snap.Ref.ID, snap.Data()).Usage {
			if date < cutoff {
				updates = append(updates, firestore.Update{
					FieldPath: firestore.FieldPath{"usage", date},
					Value:     firestore.Delete,
				})
			}
		}
		if len(updates) == 0 {
			continue
		}
		if _, err := snap.Ref.Update(ctx, updates); err != nil {
			return removed, err
		}
		removed += len(updates)
	}
	return removed, nil
}

func profileToDocument(p authdomain.Profile) map[string]interface{} {
	usage := make(map[string]interface{}, len(p.Usage))
	for date, c := range p.Usage {
		usage[date] = map[string]interface{}{
			string(authdomain.UsageMessages):    c.Messages,
			string(authdomain.UsageGenerations): c.Generations,
		}
	}
	return map[string]interface{}{
		"email":        p.Email,
		"displayName":  p.DisplayName,
		"plan":         string(p.Plan),
		"taskStatuses": []string(p.TaskStatuses),
		"usage":        usage,
		"createdAt":    p.CreatedAt,
		"updatedAt":    p.UpdatedAt,
	}
}

func profileFromDocument(uid string, data map[string]interface{}) *authdomain.Profile {
	p := &authdomain.Profile{
		UID:         uid,
		Email:       asString(data["email"]),
		DisplayName: asString(data["displayName"]),
		Plan:        authdomain.Plan(asString(data["plan"])),
		Usage:       authdomain.Usage{},
	}
	if raw, ok := data["taskStatuses"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				p.TaskStatuses = append(p.TaskStatuses, s)
			}
		}
	}
	if raw, ok := data["usage"].(map[string]interface{}); ok {
		for date, v := range raw {
			m, ok := v.(map[string]interface{})
			if !ok {
				continue
			}
			p.Usage[date] = authdomain.UsageCounts{
				Messages:    asInt(m[string(authdomain.UsageMessages)]),
				Generations: asInt(m[string(authdomain.UsageGenerations)]),
			}
		}
	}
	if ts, ok := data["createdAt"].(time.Time); ok {
		p.CreatedAt = ts
	}
	if ts, ok := data["updatedAt"].(time.Time); ok {
		p.UpdatedAt = ts
	}
	if p.Plan != authdomain.PlanPremium {
		p.Plan = authdomain.PlanFree
	}
	if len(p.TaskStatuses) == 0 {
		p.TaskStatuses = taskdomain.StringArray(taskdomain.DefaultStatuses)
	}
	return p
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}
