package flows

import (
	"context"
	"strings"
)

const (
	FallbackGreeting    = "Welcome back! Let's make today productive."
	FallbackQuote       = "The secret of getting ahead is getting started."
	FallbackQuoteAuthor = "Mark Twain"
	FallbackTip         = "Pick the one task that would make today a success and give it your first focused hour."
)

// Pages a greeting can be requested for
const (
	PageDashboard = "dashboard"
	PageTasks     = "tasks"
	PageCalendar  = "calendar"
)

// MaxUserNameLength is the longest user name a greeting prompt accepts, in runes
const MaxUserNameLength = 100

type GreetingInput struct {
	UserName     string `validate:"max=100"`
	Page         string `validate:"required,oneof=dashboard tasks calendar"`
	TaskCount    int    `validate:"gte=0"`
	PendingCount int    `validate:"gte=0"`
	OverdueCount int    `validate:"gte=0"`
	CurrentDate  string
}

type greetingOutput struct {
	Greeting string `json:"greeting"`
}

func (f *Flows) Greeting(ctx context.Context, in GreetingInput) (Result[string], error) {
	if err := validateInput(in); err != nil {
		return Result[string]{}, err
	}
	if in.CurrentDate == "" {
		in.CurrentDate = f.today()
	}
	out, err := invoke[greetingOutput](ctx, f, "greeting", in)
	if err != nil {
		return fallback(f, "greeting", err, FallbackGreeting), nil
	}
	text := strings.TrimSpace(out.Greeting)
	if text == "" {
		return fallback(f, "greeting", ErrInvalidOutput, FallbackGreeting), nil
	}
	return Result[string]{Value: text}, nil
}

type QuoteInput struct {
	Mood string `json:"mood" validate:"max=50"`
}

type Quote struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

func (f *Flows) MotivationalQuote(ctx context.Context, in QuoteInput) (Result[Quote], error) {
	if err := validateInput(in); err != nil {
		return Result[Quote]{}, err
	}
	fb := Quote{Quote: FallbackQuote, Author: FallbackQuoteAuthor}
	out, err := invoke[Quote](ctx, f, "quote", in)
	if err != nil {
		return fallback(f, "quote", err, fb), nil
	}
	if strings.TrimSpace(out.Quote) == "" {
		return fallback(f, "quote", ErrInvalidOutput, fb), nil
	}
	if out.Author == "" {
		out.Author = "Unknown"
	}
	return Result[Quote]{Value: out}, nil
}

type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user model"`
	Content string `json:"content" validate:"required,max=2000"`
}

type TipInput struct {
	Message     string     `json:"message" validate:"required,max=2000"`
	History     []ChatTurn `json:"history" validate:"max=20,dive"`
	TaskContext string     `json:"taskContext" validate:"max=4000"`
}

type tipOutput struct {
	Reply string `json:"reply"`
}

// ProductivityTip answers one turn of the productivity coach chat
func (f *Flows) ProductivityTip(ctx context.Context, in TipInput) (Result[string], error) {
	if err := validateInput(in); err != nil {
		return Result[string]{}, err
	}
	out, err := invoke[tipOutput](ctx, f, "tip", in)
	if err != nil {
		return fallback(f, "tip", err, FallbackTip), nil
	}
	reply := strings.TrimSpace(out.Reply)
	if reply == "" {
		return fallback(f, "tip", ErrInvalidOutput, FallbackTip), nil
	}
	return Result[string]{Value: reply}, nil
}
