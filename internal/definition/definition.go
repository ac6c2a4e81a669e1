package definition

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"influence-explainer/internal/explainer"
)

// Definition describes the model being explained. Predictors keep the order
// in which they appear in the source document.
type Definition struct {
	Task           string
	AnswerLanguage string
	Predictors     []explainer.Predictor
}

type document struct {
	Task           string    `yaml:"task"`
	AnswerLanguage string    `yaml:"answer_language"`
	Predictors     yaml.Node `yaml:"predictors"`
}

// Load reads a definition from a YAML file.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML definition:
//
//	task: predict churn
//	answer_language: English
//	predictors:
//	  age: customer age
//	  tenure: months as customer
func Parse(data []byte) (Definition, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Definition{}, fmt.Errorf("parse definition: %w", err)
	}
	if strings.TrimSpace(doc.Task) == "" {
		return Definition{}, errors.New("definition: task is required")
	}
	predictors, err := orderedPredictors(&doc.Predictors)
	if err != nil {
		return Definition{}, err
	}
	return Definition{
		Task:           doc.Task,
		AnswerLanguage: doc.AnswerLanguage,
		Predictors:     predictors,
	}, nil
}

// orderedPredictors walks the mapping node pairwise so document order survives.
func orderedPredictors(node *yaml.Node) ([]explainer.Predictor, error) {
	if node.Kind == 0 {
		return nil, errors.New("definition: predictors are required")
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("definition: predictors must be a mapping (line %d)", node.Line)
	}
	if len(node.Content) == 0 {
		return nil, errors.New("definition: predictors are required")
	}
	seen := make(map[string]struct{}, len(node.Content)/2)
	out := make([]explainer.Predictor, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return nil, fmt.Errorf("definition: invalid predictor name (line %d)", key.Line)
		}
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("definition: description of %q must be a string (line %d)", key.Value, val.Line)
		}
		if _, dup := seen[key.Value]; dup {
			return nil, fmt.Errorf("definition: duplicate predictor %q (line %d)", key.Value, key.Line)
		}
		seen[key.Value] = struct{}{}
		out = append(out, explainer.Predictor{Name: key.Value, Description: val.Value})
	}
	return out, nil
}

// Config turns the definition into an explainer config. A non-empty
// language overrides the one from the definition.
func (d Definition) Config(gen explainer.GenerateFunc, language string) explainer.Config {
	if language == "" {
		language = d.AnswerLanguage
	}
	return explainer.Config{
		TaskDescription: d.Task,
		Predictors:      d.Predictors,
		AnswerLanguage:  language,
		Generate:        gen,
	}
}
