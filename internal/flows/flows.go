package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"miinplanner-backend/pkg/ai"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput  = errors.New("invalid flow input")
	ErrInvalidOutput = errors.New("invalid model output")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const defaultTimeout = 30 * time.Second

// Result carries a flow value and whether it is the static fallback
type Result[T any] struct {
	Value    T    `json:"value"`
	Fallback bool `json:"fallback"`
}

// Flows runs the prompt catalog against a generator
type Flows struct {
	gen     ai.Generator
	catalog *Catalog
	timeout time.Duration
	log     *zap.Logger
	now     func() time.Time
}

// New builds the flows from the embedded catalog
func New(gen ai.Generator, timeout time.Duration, log *zap.Logger) (*Flows, error) {
	catalog, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return NewWithCatalog(gen, catalog, timeout, log), nil
}

func NewWithCatalog(gen ai.Generator, catalog *Catalog, timeout time.Duration, log *zap.Logger) *Flows {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Flows{
		gen:     gen,
		catalog: catalog,
		timeout: timeout,
		log:     log.Named("flows"),
		now:     time.Now,
	}
}

func (f *Flows) today() string {
	return f.now().Format(time.DateOnly)
}

// Validate checks a flow input against its validation tags without calling
// the model
func Validate(input any) error {
	return validateInput(input)
}

func validateInput(input any) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// invoke renders the named prompt, calls the model under the flow timeout
// and decodes the JSON answer into T.
func invoke[T any](ctx context.Context, f *Flows, name string, input any) (T, error) {
	var zero T
	def, ok := f.catalog.Flows[name]
	if !ok {
		return zero, fmt.Errorf("unknown flow %q", name)
	}
	prompt, err := def.render(input)
	if err != nil {
		return zero, fmt.Errorf("failed to render %s prompt: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	raw, err := f.gen.Generate(ctx, ai.Request{
		Prompt:      prompt,
		SchemaName:  name,
		Schema:      def.Schema,
		Temperature: def.Temperature,
	})
	if err != nil {
		return zero, err
	}
	f.log.Debug("flow completed", zap.String("flow", name), zap.Duration("took", time.Since(start)))

	cleaned := ai.CleanJSON(raw)
	if cleaned == "" {
		return zero, ai.ErrEmptyResponse
	}
	var out T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrInvalidOutput, name, err)
	}
	return out, nil
}

// fallback logs why a flow fell back and wraps the static value
func fallback[T any](f *Flows, name string, err error, value T) Result[T] {
	f.log.Warn("flow fell back", zap.String("flow", name), zap.Error(err))
	return Result[T]{Value: value, Fallback: true}
}
