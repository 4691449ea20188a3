package repository

import (
	"context"
	"errors"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"
	taskdomain "miinplanner-backend/internal/task/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines the interface for user profile operations
type ProfileRepository interface {
	Get(ctx context.Context, uid string) (*authdomain.Profile, error)
	Create(ctx context.Context, profile *authdomain.Profile) error
	UpdateIdentity(ctx context.Context, uid, email, displayName string) error
	UpdateStatuses(ctx context.Context, uid string, statuses []string) error

	// ConsumeUsage increments the day's counter for kind unless it already
	// reached limit. A limit of zero or less means unlimited.
	ConsumeUsage(ctx context.Context, uid, date string, kind authdomain.UsageKind, limit int) (int, error)

	// PruneUsage drops counters older than cutoff (YYYY-MM-DD) on every profile.
	PruneUsage(ctx context.Context, cutoff string) (int, error)
}

// profileRepository implements ProfileRepository with GORM
type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new GORM-based ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Get(ctx context.Context, uid string) (*authdomain.Profile, error) {
	var profile authdomain.Profile
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authdomain.ErrProfileNotFound
		}
		return nil, err
	}
	backfill(&profile)
	return &profile, nil
}

func (r *profileRepository) Create(ctx context.Context, profile *authdomain.Profile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	backfill(profile)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(profile).Error
}

func (r *profileRepository) UpdateIdentity(ctx context.Context, uid, email, displayName string) error {
	return r.update(ctx, uid, map[string]interface{}{
		"email":        email,
		"display_name": displayName,
	})
}

func (r *profileRepository) UpdateStatuses(ctx context.Context, uid string, statuses []string) error {
	return r.update(ctx, uid, map[string]interface{}{
		"task_statuses": taskdomain.StringArray(statuses),
	})
}

func (r *profileRepository) update(ctx context.Context, uid string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&authdomain.Profile{}).Where("uid = ?", uid).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return authdomain.ErrProfileNotFound
	}
	return nil
}

func (r *profileRepository) ConsumeUsage(ctx context.Context, uid, date string, kind authdomain.UsageKind, limit int) (int, error) {
	var used int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() == "postgres" {
			q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var profile authdomain.Profile
		if err := q.Where("uid = ?", uid).First(&profile).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return authdomain.ErrProfileNotFound
			}
			return err
		}
		if profile.Usage == nil {
			profile.Usage = authdomain.Usage{}
		}

		counts := profile.Usage[date]
		if limit > 0 && counts.Get(kind) >= limit {
			used = counts.Get(kind)
			return authdomain.ErrQuotaExceeded
		}
		counts.Add(kind, 1)
		profile.Usage[date] = counts
		used = counts.Get(kind)

		return tx.Model(&authdomain.Profile{}).Where("uid = ?", uid).
			Updates(map[string]interface{}{"usage": profile.Usage, "updated_at": time.Now().UTC()}).Error
	})
	return used, err
}

func (r *profileRepository) PruneUsage(ctx context.Context, cutoff string) (int, error) {
	var profiles []authdomain.Profile
	if err := r.db.WithContext(ctx).Select("uid", "usage").Find(&profiles).Error; err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range profiles {
		n := p.Usage.Prune(cutoff)
		if n == 0 {
			continue
		}
		err := r.db.WithContext(ctx).Model(&authdomain.Profile{}).Where("uid = ?", p.UID).
			Update("usage", p.Usage).Error
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func backfill(p *authdomain.Profile) {
	if p.Plan == "" {
		p.Plan = authdomain.PlanFree
	}
	if len(p.TaskStatuses) == 0 {
		p.TaskStatuses = taskdomain.StringArray(taskdomain.NewWorkflow(nil).Statuses())
	}
	if p.Usage == nil {
		p.Usage = authdomain.Usage{}
	}
}
