package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "miinplanner-backend/internal/auth/domain"
	"miinplanner-backend/internal/auth/repository"
	"miinplanner-backend/pkg/config"

	"go.uber.org/zap"
)

const usageRetentionDays = 7

// ProfileUsecase owns profile bootstrap, workflow statuses, usage quotas
// and device registration.
type ProfileUsecase struct {
	profiles repository.ProfileRepository
	tokens   repository.FCMTokenRepository
	limits   map[authdomain.UsageKind]int
	log      *zap.Logger
	now      func() time.Time
}

// NewProfileUsecase creates a new ProfileUsecase
func NewProfileUsecase(profiles repository.ProfileRepository, tokens repository.FCMTokenRepository, cfg *config.Config, log *zap.Logger) *ProfileUsecase {
	return &ProfileUsecase{
		profiles: profiles,
		tokens:   tokens,
		limits: map[authdomain.UsageKind]int{
			authdomain.UsageMessages:    cfg.FreeDailyMessages,
			authdomain.UsageGenerations: cfg.FreeDailyGenerations,
		},
		log: log.Named("profile"),
		now: time.Now,
	}
}

// Bootstrap returns the session's profile, creating it on first sight and
// mirroring identity changes from the provider.
func (u *ProfileUsecase) Bootstrap(ctx context.Context, s authdomain.Session) (*authdomain.Profile, error) {
	profile, err := u.profiles.Get(ctx, s.UID)
	if errors.Is(err, authdomain.ErrProfileNotFound) {
		profile = authdomain.NewProfile(s, u.now().UTC())
		if err := u.profiles.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
		u.log.Info("profile created", zap.String("uid", s.UID))
		return profile, nil
	}
	if err != nil {
		return nil, err
	}

	if profile.Email != s.Email || (s.DisplayName != "" && profile.DisplayName != s.DisplayName) {
		name := profile.DisplayName
		if s.DisplayName != "" {
			name = s.DisplayName
		}
		if err := u.profiles.UpdateIdentity(ctx, s.UID, s.Email, name); err != nil {
			return nil, err
		}
		profile.Email = s.Email
		profile.DisplayName = name
	}
	return profile, nil
}

func (u *ProfileUsecase) Get(ctx context.Context, uid string) (*authdomain.Profile, error) {
	return u.profiles.Get(ctx, uid)
}

// Statuses returns the user's workflow status list
func (u *ProfileUsecase) Statuses(ctx context.Context, uid string) ([]string, error) {
	profile, err := u.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return profile.Workflow().Statuses(), nil
}

func (u *ProfileUsecase) UpdateStatuses(ctx context.Context, uid string, statuses []string) error {
	return u.profiles.UpdateStatuses(ctx, uid, statuses)
}

// ConsumeQuota records one use of a rate-limited feature. Premium users are
// unlimited; free users are capped per day.
func (u *ProfileUsecase) ConsumeQuota(ctx context.Context, uid string, kind authdomain.UsageKind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown usage kind %q", kind)
	}
	profile, err := u.profiles.Get(ctx, uid)
	if err != nil {
		return err
	}

	limit := u.limits[kind]
	if profile.Plan == authdomain.PlanPremium {
		limit = 0
	}
	date := u.now().UTC().Format(time.DateOnly)
	used, err := u.profiles.ConsumeUsage(ctx, uid, date, kind, limit)
	if err != nil {
		if errors.Is(err, authdomain.ErrQuotaExceeded) {
			u.log.Info("quota exceeded", zap.String("uid", uid), zap.String("kind", string(kind)), zap.Int("used", used))
		}
		return err
	}
	return nil
}

// PruneUsage drops usage counters older than the retention window
func (u *ProfileUsecase) PruneUsage(ctx context.Context) {
	cutoff := u.now().UTC().AddDate(0, 0, -usageRetentionDays).Format(time.DateOnly)
	removed, err := u.profiles.PruneUsage(ctx, cutoff)
	if err != nil {
		u.log.Error("usage prune failed", zap.Error(err))
		return
	}
	u.log.Info("usage pruned", zap.Int("entries", removed), zap.String("cutoff", cutoff))
}

func (u *ProfileUsecase) RegisterDevice(ctx context.Context, uid, token, deviceInfo string) error {
	if token == "" {
		return errors.New("token is required")
	}
	return u.tokens.SaveToken(ctx, uid, token, deviceInfo)
}

// UnregisterDevice removes a token only when it belongs to uid
func (u *ProfileUsecase) UnregisterDevice(ctx context.Context, uid, token string) error {
	tokens, err := u.tokens.GetTokensByUserID(ctx, uid)
	if err != nil {
		return err
	}
	for _, t := range tokens {
		if t.Token == token {
			return u.tokens.DeleteToken(ctx, token)
		}
	}
	return nil
}

// DeviceTokens lists the raw push tokens registered for uid
func (u *ProfileUsecase) DeviceTokens(ctx context.Context, uid string) ([]string, error) {
	tokens, err := u.tokens.GetTokensByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, t.Token)
	}
	return out, nil
}

func (u *ProfileUsecase) RemoveDeviceTokens(ctx context.Context, tokens []string) {
	for _, t := range tokens {
		if err := u.tokens.DeleteToken(ctx, t); err != nil {
			u.log.Warn("failed to remove device token", zap.Error(err))
		}
	}
}
