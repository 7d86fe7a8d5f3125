package intake

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/job"
)

// Staged describes an upload written to the scoped working directory.
type Staged struct {
	Path     string
	Filename string
	Format   string
	// WavDuration is a best-effort estimate from the container header,
	// zero for non-WAV uploads or unreadable headers. The recognizer
	// remains the authority on the real audio duration.
	WavDuration time.Duration
}

// Store validates uploads and stages them on local disk.
type Store struct {
	cfg    config.IntakeConfig
	logger *slog.Logger
}

func NewStore(cfg config.IntakeConfig, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	return &Store{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "intake")),
	}, nil
}

// Accept validates the payload against the format allow-list and size limits
// and writes it to a uniquely named file. No partial file survives a failed
// write.
func (s *Store) Accept(data []byte, filename string) (Staged, error) {
	format, err := s.checkFormat(filename)
	if err != nil {
		return Staged{}, err
	}
	if len(data) == 0 {
		return Staged{}, fmt.Errorf("%w: empty payload", job.ErrValidation)
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return Staged{}, fmt.Errorf("%w: payload of %d bytes exceeds limit of %d",
			job.ErrValidation, len(data), s.cfg.MaxUploadBytes)
	}

	file, err := os.CreateTemp(s.cfg.WorkDir, "upload_*."+format)
	if err != nil {
		return Staged{}, fmt.Errorf("%w: create staging file: %v", job.ErrStorage, err)
	}
	path := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(path)
		return Staged{}, fmt.Errorf("%w: write staging file: %v", job.ErrStorage, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return Staged{}, fmt.Errorf("%w: close staging file: %v", job.ErrStorage, err)
	}

	staged := Staged{Path: path, Filename: filepath.Base(filename), Format: format}
	if format == "wav" {
		// Advisory only: a garbage container still proceeds to the
		// recognizer, which owns the corrupt-audio verdict.
		if dur, ok := probeWav(path); ok {
			staged.WavDuration = dur
		} else {
			s.logger.Warn("wav header unreadable, deferring to recognizer",
				slog.String("filename", staged.Filename))
		}
	}

	s.logger.Info("upload staged",
		slog.String("filename", staged.Filename),
		slog.String("format", format),
		slog.Int("bytes", len(data)))
	return staged, nil
}

// Discard removes a staged file. Missing files are not an error: the sweep
// and the failure paths may race for the same cleanup.
func (s *Store) Discard(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove staged file",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

func (s *Store) checkFormat(filename string) (string, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "", fmt.Errorf("%w: filename %q has no extension", job.ErrValidation, filename)
	}
	for _, allowed := range s.cfg.AllowedFormats {
		if ext == strings.ToLower(allowed) {
			return ext, nil
		}
	}
	return "", fmt.Errorf("%w: format %q not in allow-list %v", job.ErrValidation, ext, s.cfg.AllowedFormats)
}
