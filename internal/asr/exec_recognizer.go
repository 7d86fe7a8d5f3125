package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/job"
)

type execRecognizer struct {
	cmd []string
	cfg config.ASRConfig
	mu  sync.Mutex
}

type execResult struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"duration"`
	Language        string  `json:"language"`
}

// NewExecRecognizer wraps a whisper-style CLI that reads an audio file and
// writes a JSON result on stdout.
func NewExecRecognizer(cfg config.ASRConfig) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse asr command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("asr command is empty")
	}
	return &execRecognizer{cmd: args, cfg: cfg}, nil
}

func (r *execRecognizer) Transcribe(ctx context.Context, audioPath string) (Result, error) {
	// The process owns the whole accelerator while it runs. The pipeline
	// lease already serializes callers; the mutex is the local invariant.
	r.mu.Lock()
	defer r.mu.Unlock()

	args := append([]string{}, r.cmd...)
	base := args[0]
	cmdArgs := args[1:]
	cmdArgs = append(cmdArgs, "--audio", audioPath)
	if r.cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", r.cfg.ModelPath)
	}
	if r.cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", r.cfg.Language)
	}

	command := exec.CommandContext(ctx, base, cmdArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("%w: asr command interrupted: %v", job.ErrTimeout, ctxErr)
		}
		return Result{}, fmt.Errorf("%w: asr command: %v: %s", job.ErrTranscription, err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Result{}, fmt.Errorf("%w: decode asr response: %v", job.ErrTranscription, err)
	}
	return Result{
		Text:            resp.Text,
		DurationSeconds: resp.DurationSeconds,
		Language:        resp.Language,
	}, nil
}
