package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	taskdomain "miinplanner-backend/internal/task/domain"
)

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrQuotaExceeded    = errors.New("daily limit reached for your plan")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrEmailNotVerified = errors.New("email not verified")
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// UsageKind names a rate-limited AI feature
type UsageKind string

const (
	UsageMessages    UsageKind = "messages"
	UsageGenerations UsageKind = "generations"
)

func (k UsageKind) Valid() bool {
	return k == UsageMessages || k == UsageGenerations
}

// UsageCounts holds one day's counters
type UsageCounts struct {
	Messages    int `json:"messages"`
	Generations int `json:"generations"`
}

func (u UsageCounts) Get(kind UsageKind) int {
	if kind == UsageMessages {
		return u.Messages
	}
	return u.Generations
}

func (u *UsageCounts) Add(kind UsageKind, n int) {
	if kind == UsageMessages {
		u.Messages += n
	} else {
		u.Generations += n
	}
}

// Usage maps a YYYY-MM-DD date to that day's counters
type Usage map[string]UsageCounts

// Value implements driver.Valuer
func (u Usage) Value() (driver.Value, error) {
	if len(u) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (u *Usage) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*u = Usage{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported Usage source %T", value)
	}
	if len(bytes) == 0 {
		*u = Usage{}
		return nil
	}
	return json.Unmarshal(bytes, u)
}

// Prune drops counters for dates before cutoff (YYYY-MM-DD) and reports
// how many were removed.
func (u Usage) Prune(cutoff string) int {
	removed := 0
	for date := range u {
		if date < cutoff {
			delete(u, date)
			removed++
		}
	}
	return removed
}

// Profile mirrors an identity-provider user and carries per-user settings
type Profile struct {
	UID          string                 `json:"uid" gorm:"column:uid;primaryKey"`
	Email        string                 `json:"email"`
	DisplayName  string                 `json:"displayName"`
	Plan         Plan                   `json:"plan" gorm:"default:free"`
	TaskStatuses taskdomain.StringArray `json:"taskStatuses" gorm:"type:text"`
	Usage        Usage                  `json:"usage" gorm:"type:text"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// Workflow returns the profile's task workflow, defaulting when unset.
func (p Profile) Workflow() taskdomain.Workflow {
	return taskdomain.NewWorkflow(p.TaskStatuses)
}

// NewProfile builds the profile created on a user's first sign-in.
func NewProfile(s Session, now time.Time) *Profile {
	return &Profile{
		UID:          s.UID,
		Email:        s.Email,
		DisplayName:  s.DisplayName,
		Plan:         PlanFree,
		TaskStatuses: taskdomain.StringArray(taskdomain.NewWorkflow(nil).Statuses()),
		Usage:        Usage{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Session is the verified identity attached to a request
type Session struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
}
