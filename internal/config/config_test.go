package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.Endpoint != "http://localhost:11434" {
		t.Fatalf("expected default llm endpoint, got %q", cfg.LLM.Endpoint)
	}
	if got := cfg.Intake.AllowedFormats; len(got) != 3 || got[0] != "mp3" {
		t.Fatalf("unexpected default allowed formats: %v", got)
	}
	if cfg.JobLog.RetentionMode != "ephemeral" {
		t.Fatalf("expected ephemeral job log by default, got %q", cfg.JobLog.RetentionMode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RECAP_HTTP_PORT", "9000")
	t.Setenv("RECAP_INTAKE_MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("RECAP_INTAKE_ALLOWED_FORMATS", "wav, mp3")
	t.Setenv("RECAP_ASR_MODE", "exec")
	t.Setenv("RECAP_ASR_COMMAND", "whisper-cli --output-json")
	t.Setenv("RECAP_LLM_MODEL", "llama3.2:latest")
	t.Setenv("RECAP_LLM_TEMPERATURE", "0.2")
	t.Setenv("RECAP_PIPELINE_SUMMARIZE_ATTEMPTS", "5")
	t.Setenv("RECAP_NOTIFY_ENABLED", "true")
	t.Setenv("RECAP_NOTIFY_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTP.Port != 9000 {
		t.Fatalf("expected port override, got %d", cfg.HTTP.Port)
	}
	if cfg.Intake.MaxUploadBytes != 1048576 {
		t.Fatalf("expected upload byte override, got %d", cfg.Intake.MaxUploadBytes)
	}
	if len(cfg.Intake.AllowedFormats) != 2 {
		t.Fatalf("expected 2 allowed formats, got %v", cfg.Intake.AllowedFormats)
	}
	if cfg.ASR.Mode != "exec" || cfg.ASR.Command == "" {
		t.Fatalf("expected exec asr override, got %+v", cfg.ASR)
	}
	if cfg.LLM.Model != "llama3.2:latest" {
		t.Fatalf("expected llm model override, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Fatalf("expected temperature override, got %f", cfg.LLM.Temperature)
	}
	if cfg.Pipeline.SummarizeAttempts != 5 {
		t.Fatalf("expected attempts override, got %d", cfg.Pipeline.SummarizeAttempts)
	}
	if !cfg.Notify.Enabled || len(cfg.Notify.Servers) != 2 {
		t.Fatalf("expected notify override, got %+v", cfg.Notify)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recapd.yaml")
	data := []byte("http:\n  port: 8181\nasr:\n  mode: exec\n  command: \"whisper-cli\"\nllm:\n  mode: ollama\n  model: phi3.5\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 8181 {
		t.Fatalf("expected port from file, got %d", cfg.HTTP.Port)
	}
	if cfg.ASR.Mode != "exec" {
		t.Fatalf("expected asr mode from file, got %q", cfg.ASR.Mode)
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	t.Setenv("RECAP_ASR_MODE", "exec")

	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec mode without command")
	}
}
