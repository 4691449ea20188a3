package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrInvalidStatus   = errors.New("invalid post status")
	ErrContentRequired = errors.New("content is required")
)

type Platform string

const (
	PlatformX         Platform = "X"
	PlatformLinkedIn  Platform = "LinkedIn"
	PlatformInstagram Platform = "Instagram"
	PlatformGeneral   Platform = "General"
)

var Platforms = []Platform{PlatformX, PlatformLinkedIn, PlatformInstagram, PlatformGeneral}

func (p Platform) Valid() bool { return slices.Contains(Platforms, p) }

// MaxLength is the post length limit for the platform, zero when unbounded.
func (p Platform) MaxLength() int {
	if p == PlatformX {
		return 280
	}
	return 0
}

type PostStatus string

const (
	PostDraft         PostStatus = "Draft"
	PostScheduled     PostStatus = "Scheduled"
	PostPosted        PostStatus = "Posted"
	PostNeedsApproval PostStatus = "Needs Approval"
)

var PostStatuses = []PostStatus{PostDraft, PostScheduled, PostPosted, PostNeedsApproval}

func (s PostStatus) Valid() bool { return slices.Contains(PostStatuses, s) }

// Post is a social media post draft owned by one user
type Post struct {
	ID            string     `json:"id" gorm:"primaryKey"`
	UserID        string     `json:"userId" gorm:"index;not null"`
	Platform      Platform   `json:"platform"`
	Content       string     `json:"content"`
	Status        PostStatus `json:"status"`
	ScheduledDate *string    `json:"scheduledDate,omitempty"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	Topic         *string    `json:"topic,omitempty"`
	Tone          *string    `json:"tone,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (Post) TableName() string { return "social_posts" }

// PostInput is used both for creating a post and for partial updates
type PostInput struct {
	Platform      *Platform   `json:"platform"`
	Content       *string     `json:"content"`
	Status        *PostStatus `json:"status"`
	ScheduledDate *string     `json:"scheduledDate"`
	ImageURL      *string     `json:"imageUrl"`
	Notes         *string     `json:"notes"`
	Topic         *string     `json:"topic"`
	Tone          *string     `json:"tone"`
}

// Validate checks enum fields that are present
func (in PostInput) Validate() error {
	if in.Platform != nil && !in.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, *in.Platform)
	}
	if in.Status != nil && !in.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
	}
	return nil
}

// NewPost builds a post from input, defaulting to a General draft
func NewPost(userID string, in PostInput) (*Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Content == nil || *in.Content == "" {
		return nil, ErrContentRequired
	}
	p := &Post{
		UserID:   userID,
		Platform: PlatformGeneral,
		Status:   PostDraft,
	}
	p = in.Apply(*p)
	return p, nil
}

// Apply returns a copy of p with the present input fields set. Empty
// strings clear optional fields.
func (in PostInput) Apply(p Post) *Post {
	if in.Platform != nil {
		p.Platform = *in.Platform
	}
	if in.Content != nil {
		p.Content = *in.Content
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	setOptional(&p.ScheduledDate, in.ScheduledDate)
	setOptional(&p.ImageURL, in.ImageURL)
	setOptional(&p.Notes, in.Notes)
	setOptional(&p.Topic, in.Topic)
	setOptional(&p.Tone, in.Tone)
	return &p
}

func setOptional(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}
