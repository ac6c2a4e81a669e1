package llm

import (
	"context"
	"strings"
)

// StubClient answers without calling any model. Useful for local runs.
type StubClient struct{}

func (StubClient) Complete(_ context.Context, prompt string) (string, error) {
	var names []string
	for _, line := range strings.Split(prompt, "\n") {
		if !strings.HasPrefix(line, "- ") {
			continue
		}
		name, _, ok := strings.Cut(strings.TrimPrefix(line, "- "), " = ")
		if ok {
			names = append(names, "("+name+")")
		}
	}
	if len(names) == 0 {
		return "No features were provided.", nil
	}
	return "The prediction was driven by " + strings.Join(names, ", ") + ".", nil
}
