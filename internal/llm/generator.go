package llm

import (
	"context"
	"fmt"

	"github.com/recaplabs/recapd/internal/config"
)

// Request describes one language model generation call.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// Generator is the opaque text generation capability. One call, one
// completion; the service behind it may handle its own concurrency.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Prober is implemented by backends that can report reachability of the
// model server without issuing a generation.
type Prober interface {
	Probe(ctx context.Context) error
}

// New selects a generator backend from config.
func New(cfg config.LLMConfig) (Generator, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockGenerator(), nil
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model, cfg.MaxContextTokens), nil
	case "exec":
		return NewExecGenerator(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown llm mode %q", cfg.Mode)
	}
}
