package flows

import (
	"context"
	"fmt"
	"strings"

	socialdomain "miinplanner-backend/internal/social/domain"
)

type ContentIdeasInput struct {
	Topic    string `json:"topic" validate:"required,max=200"`
	Audience string `json:"audience" validate:"max=200"`
	Platform string `json:"platform" validate:"omitempty,oneof=X LinkedIn Instagram General"`
	Count    int    `json:"count" validate:"omitempty,min=1,max=10"`
}

type ContentIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Format      string `json:"format,omitempty"`
}

type contentIdeasOutput struct {
	Ideas []ContentIdea `json:"ideas"`
}

func (f *Flows) ContentIdeas(ctx context.Context, in ContentIdeasInput) (Result[[]ContentIdea], error) {
	if in.Count == 0 {
		in.Count = 5
	}
	if err := validateInput(in); err != nil {
		return Result[[]ContentIdea]{}, err
	}
	out, err := invoke[contentIdeasOutput](ctx, f, "contentIdeas", in)
	if err != nil {
		return fallback(f, "contentIdeas", err, fallbackIdeas(in.Topic)), nil
	}

	ideas := make([]ContentIdea, 0, len(out.Ideas))
	for _, idea := range out.Ideas {
		if strings.TrimSpace(idea.Title) == "" {
			continue
		}
		ideas = append(ideas, idea)
		if len(ideas) == in.Count {
			break
		}
	}
	if len(ideas) == 0 {
		return fallback(f, "contentIdeas", ErrInvalidOutput, fallbackIdeas(in.Topic)), nil
	}
	return Result[[]ContentIdea]{Value: ideas}, nil
}

func fallbackIdeas(topic string) []ContentIdea {
	return []ContentIdea{
		{Title: fmt.Sprintf("Behind the scenes: %s", topic), Description: "Show how your team works on this day to day.", Format: "short video"},
		{Title: fmt.Sprintf("5 common mistakes with %s", topic), Description: "A practical list your audience can act on right away.", Format: "carousel"},
		{Title: fmt.Sprintf("%s: questions we hear most", topic), Description: "Answer the top customer questions in one place.", Format: "blog post"},
	}
}

type SocialPostInput struct {
	Platform string   `json:"platform" validate:"required,oneof=X LinkedIn Instagram General"`
	Topic    string   `json:"topic" validate:"required,max=500"`
	Tone     string   `json:"tone" validate:"max=50"`
	Keywords []string `json:"keywords" validate:"max=10,dive,required"`
}

type SocialPostDraft struct {
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// SocialPost drafts a post; X posts are cut to the platform limit
func (f *Flows) SocialPost(ctx context.Context, in SocialPostInput) (Result[SocialPostDraft], error) {
	if err := validateInput(in); err != nil {
		return Result[SocialPostDraft]{}, err
	}
	platform := socialdomain.Platform(in.Platform)
	fb := SocialPostDraft{
		Content:  truncate(fmt.Sprintf("Something new is coming about %s. Stay tuned!", in.Topic), platform.MaxLength()),
		Hashtags: []string{},
	}

	out, err := invoke[SocialPostDraft](ctx, f, "socialPost", in)
	if err != nil {
		return fallback(f, "socialPost", err, fb), nil
	}
	out.Content = strings.TrimSpace(out.Content)
	if out.Content == "" {
		return fallback(f, "socialPost", ErrInvalidOutput, fb), nil
	}
	out.Content = truncate(out.Content, platform.MaxLength())
	hashtags := make([]string, 0, len(out.Hashtags))
	for _, tag := range out.Hashtags {
		if tag = strings.TrimPrefix(strings.TrimSpace(tag), "#"); tag != "" {
			hashtags = append(hashtags, tag)
		}
	}
	out.Hashtags = hashtags
	return Result[SocialPostDraft]{Value: out}, nil
}

// truncate cuts s to limit runes; limit zero means unbounded
func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
