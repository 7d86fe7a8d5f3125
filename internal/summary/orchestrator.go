package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/job"
	"github.com/recaplabs/recapd/internal/llm"
)

// noContentLine fills every section when there is nothing to summarize.
const noContentLine = "No content available."

// charsPerToken is the sizing heuristic used to refuse transcripts that
// cannot fit the model context in a single pass.
const charsPerToken = 4

// Orchestrator turns a transcript into a StructuredSummary with one
// full-context generation pass and at most one corrective retry.
type Orchestrator struct {
	cfg    config.LLMConfig
	gen    llm.Generator
	logger *slog.Logger
}

func NewOrchestrator(cfg config.LLMConfig, gen llm.Generator, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		gen:    gen,
		logger: logger.With(slog.String("component", "summary")),
	}
}

// Summarize produces the six-section document for a transcript.
//
// An empty transcript is answered locally without a model call. A transcript
// that cannot fit the context window fails with ErrTranscriptTooLong rather
// than being truncated. A response that does not parse gets exactly one
// repair attempt; a second malformed response fails with ErrSummaryFormat —
// a partially recognized document is never returned as if it were complete.
func (o *Orchestrator) Summarize(ctx context.Context, transcript string) (job.StructuredSummary, error) {
	if strings.TrimSpace(transcript) == "" {
		return noContentSummary(), nil
	}
	if err := o.checkBudget(transcript); err != nil {
		return job.StructuredSummary{}, err
	}

	req := llm.Request{
		Prompt:      BuildPrompt(transcript),
		System:      systemPrompt,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	}
	start := time.Now()
	raw, err := o.gen.Generate(ctx, req)
	if err != nil {
		return job.StructuredSummary{}, err
	}

	parsed := Parse(raw)
	if parsed.Status == ParsedSix {
		o.logger.Info("summary generated",
			slog.Duration("latency", time.Since(start)))
		return parsed.Summary, nil
	}

	o.logger.Warn("summary response malformed, attempting repair",
		slog.Int("missing_sections", len(parsed.Missing)))

	req.Prompt = BuildRepairPrompt(transcript, parsed.Missing)
	raw, err = o.gen.Generate(ctx, req)
	if err != nil {
		return job.StructuredSummary{}, err
	}

	repaired := Parse(raw)
	if repaired.Status != ParsedSix {
		return job.StructuredSummary{}, fmt.Errorf("%w: %d sections missing after repair attempt",
			job.ErrSummaryFormat, len(repaired.Missing))
	}
	o.logger.Info("summary generated after repair",
		slog.Duration("latency", time.Since(start)))
	return repaired.Summary, nil
}

func (o *Orchestrator) checkBudget(transcript string) error {
	// Rough sizing: the fixed prompt scaffolding is small next to any
	// transcript long enough to matter.
	estimated := len(transcript)/charsPerToken + 256
	if estimated > o.cfg.MaxContextTokens {
		return fmt.Errorf("%w: ~%d tokens against a budget of %d",
			job.ErrTranscriptTooLong, estimated, o.cfg.MaxContextTokens)
	}
	return nil
}

func noContentSummary() job.StructuredSummary {
	line := func() []string { return []string{noContentLine} }
	return job.StructuredSummary{
		Overview:      line(),
		MainPoints:    line(),
		KeyInsights:   line(),
		ActionItems:   line(),
		OpenQuestions: line(),
		Conclusions:   line(),
	}
}
