package explainer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultAnswerLanguage is used when Config.AnswerLanguage is empty.
const DefaultAnswerLanguage = "English"

var (
	ErrInvalidPredictor = errors.New("some incoming predictors are unacceptable")
	ErrMissingValue     = errors.New("missing influence value")
	ErrInvalidGenerator = errors.New("generate function must be set")
	ErrInvalidConfig    = errors.New("invalid explainer config")
)

// GenerateFunc turns a rendered prompt into generated text.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

// Predictor is a model feature and its human-readable description.
type Predictor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Config is the immutable configuration of an Explainer.
// Predictors are listed in the prompt in slice order.
type Config struct {
	TaskDescription string
	Predictors      []Predictor
	AnswerLanguage  string
	Generate        GenerateFunc
}

// Explainer renders influence values into a prompt and delegates the
// explanation text to its GenerateFunc. It is safe for concurrent use when
// the GenerateFunc is.
type Explainer struct {
	task       string
	predictors []Predictor
	known      map[string]struct{}
	language   string
	generate   GenerateFunc
}

// New validates cfg and builds an Explainer.
func New(cfg Config) (*Explainer, error) {
	if cfg.Generate == nil {
		return nil, ErrInvalidGenerator
	}
	predictors := make([]Predictor, len(cfg.Predictors))
	copy(predictors, cfg.Predictors)
	known := make(map[string]struct{}, len(predictors))
	for _, p := range predictors {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: empty predictor name", ErrInvalidConfig)
		}
		if _, dup := known[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate predictor %q", ErrInvalidConfig, p.Name)
		}
		known[p.Name] = struct{}{}
	}
	language := cfg.AnswerLanguage
	if language == "" {
		language = DefaultAnswerLanguage
	}
	return &Explainer{
		task:       cfg.TaskDescription,
		predictors: predictors,
		known:      known,
		language:   language,
		generate:   cfg.Generate,
	}, nil
}

// Explain renders the prompt for values, calls the generator and returns its
// output trimmed and folded onto a single line. Generator errors are returned
// as is.
func (e *Explainer) Explain(ctx context.Context, values map[string]float64) (string, error) {
	prompt, err := e.Prompt(values)
	if err != nil {
		return "", err
	}
	text, err := e.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	return normalize(text), nil
}

// Prompt validates values and renders the prompt without calling the generator.
func (e *Explainer) Prompt(values map[string]float64) (string, error) {
	if err := e.Validate(values); err != nil {
		return "", err
	}
	return render(promptData{
		TaskDescription:      e.task,
		PredictionInfluences: influenceLines(e.predictors, values),
		AnswerLanguage:       e.language,
	})
}

// Validate reports ErrInvalidPredictor when values name a predictor that is
// not configured, and ErrMissingValue when a configured predictor has no value.
func (e *Explainer) Validate(values map[string]float64) error {
	var unknown []string
	for name := range values {
		if _, ok := e.known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrInvalidPredictor, strings.Join(unknown, ", "))
	}

	var missing []string
	for _, p := range e.predictors {
		if _, ok := values[p.Name]; !ok {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingValue, strings.Join(missing, ", "))
	}
	return nil
}

// Predictors returns a copy of the configured predictors in prompt order.
func (e *Explainer) Predictors() []Predictor {
	out := make([]Predictor, len(e.predictors))
	copy(out, e.predictors)
	return out
}

func (e *Explainer) TaskDescription() string { return e.task }

func (e *Explainer) AnswerLanguage() string { return e.language }

// normalize trims the generated text and replaces every newline with a space.
func normalize(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
}
