package joblog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/job"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	cfg := config.JobLogConfig{RetentionMode: "ephemeral"}
	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Ensure(); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := s.Append(ctx, job.Job{ID: "j-1", State: job.StateQueued}, "accepted"); err != nil {
		t.Fatalf("ephemeral append must be a no-op: %v", err)
	}
	entries, err := s.History(ctx, "j-1", 10)
	if err != nil || entries != nil {
		t.Fatalf("ephemeral history = %v, %v", entries, err)
	}
}

func TestAppendAndHistory(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JobLogConfig{Path: filepath.Join(tmp, "jobs.db"), RetentionMode: "session"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open job log: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	j := job.Job{ID: "job-123", Filename: "standup.mp3", State: job.StateQueued}
	if err := s.Append(context.Background(), j, "accepted"); err != nil {
		t.Fatalf("append: %v", err)
	}
	j.State = job.StateFailed
	j.Failure = &job.Failure{Code: job.CodeTranscription, Message: "decode error"}
	if err := s.Append(context.Background(), j, "transcription failed"); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.History(context.Background(), "job-123", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].State != job.StateQueued || entries[0].Filename != "standup.mp3" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].State != job.StateFailed || entries[1].FailureCode != string(job.CodeTranscription) {
		t.Fatalf("second entry = %+v", entries[1])
	}
}

func TestPruneByDaysAndJobs(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JobLogConfig{Path: filepath.Join(tmp, "jobs.db"), RetentionMode: "persistent", RetentionDays: 1, MaxJobs: 1}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open job log: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), job.Job{ID: "old-job", State: job.StateCompleted}, "done"); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.Append(context.Background(), job.Job{ID: "new-job", State: job.StateQueued}, "accepted"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	entries, err := s.History(context.Background(), "old-job", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected old job pruned, got %d entries", len(entries))
	}
}
