package intake

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/job"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	cfg := config.IntakeConfig{
		WorkDir:        t.TempDir(),
		MaxUploadBytes: maxBytes,
		AllowedFormats: []string{"mp3", "wav", "m4a"},
	}
	s, err := NewStore(cfg, newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

// wavPayload encodes a second of silence into a valid RIFF container.
func wavPayload(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(file, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:   make([]int, 16000),
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	file.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	return data
}

func TestAcceptStagesFile(t *testing.T) {
	s := newStore(t, 1<<20)
	staged, err := s.Accept([]byte("fake mp3 bytes"), "Team Sync.MP3")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if staged.Format != "mp3" {
		t.Fatalf("format = %q, want mp3", staged.Format)
	}
	if _, err := os.Stat(staged.Path); err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if staged.Filename != "Team Sync.MP3" {
		t.Fatalf("filename = %q", staged.Filename)
	}
}

func TestAcceptRejectsBadUploads(t *testing.T) {
	s := newStore(t, 16)

	cases := []struct {
		name     string
		data     []byte
		filename string
	}{
		{"disallowed extension", []byte("x"), "notes.txt"},
		{"no extension", []byte("x"), "notes"},
		{"empty payload", nil, "a.mp3"},
		{"oversize payload", bytes.Repeat([]byte("x"), 17), "a.mp3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.Accept(tc.data, tc.filename); !errors.Is(err, job.ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}

	entries, err := os.ReadDir(s.cfg.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("rejected uploads left %d files behind", len(entries))
	}
}

func TestAcceptProbesWavDuration(t *testing.T) {
	s := newStore(t, 1<<20)
	staged, err := s.Accept(wavPayload(t), "silence.wav")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if staged.WavDuration != time.Second {
		t.Fatalf("probed duration = %v, want 1s", staged.WavDuration)
	}
}

func TestAcceptKeepsGarbageWav(t *testing.T) {
	// A corrupt container with a valid extension is the recognizer's
	// problem, not a validation failure.
	s := newStore(t, 1<<20)
	staged, err := s.Accept([]byte("definitely not RIFF"), "broken.wav")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if staged.WavDuration != 0 {
		t.Fatalf("expected zero duration for garbage header, got %v", staged.WavDuration)
	}
}

func TestDiscardTwiceIsQuiet(t *testing.T) {
	s := newStore(t, 1<<20)
	staged, err := s.Accept([]byte("bytes"), "a.m4a")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	s.Discard(staged.Path)
	s.Discard(staged.Path)
	if _, err := os.Stat(staged.Path); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
}
