package asr

import (
	"context"
	"fmt"

	"github.com/recaplabs/recapd/internal/config"
)

// Result captures recognizer output for one audio file. An empty Text is a
// valid result: silent or unintelligible audio is not an error.
type Result struct {
	Text            string
	DurationSeconds float64
	Language        string
}

// Recognizer abstracts the speech recognition capability. Implementations
// block for the duration of inference; serialization on the shared
// accelerator is the caller's responsibility.
type Recognizer interface {
	Transcribe(ctx context.Context, audioPath string) (Result, error)
}

// New selects a recognizer backend from config.
func New(cfg config.ASRConfig) (Recognizer, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockRecognizer(), nil
	case "exec":
		return NewExecRecognizer(cfg)
	default:
		return nil, fmt.Errorf("unknown asr mode %q", cfg.Mode)
	}
}
