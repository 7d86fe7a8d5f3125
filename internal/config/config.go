package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	ServiceName string          `yaml:"service_name"`
	Environment string          `yaml:"environment"`
	HTTP        HTTPConfig      `yaml:"http"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Intake      IntakeConfig    `yaml:"intake"`
	ASR         ASRConfig       `yaml:"asr"`
	LLM         LLMConfig       `yaml:"llm"`
	Pipeline    PipelineConfig  `yaml:"pipeline"`
	Notify      NotifyConfig    `yaml:"notify"`
	JobLog      JobLogConfig    `yaml:"job_log"`
}

type IntakeConfig struct {
	WorkDir        string   `yaml:"work_dir"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
	AllowedFormats []string `yaml:"allowed_formats"`
}

type ASRConfig struct {
	Mode        string `yaml:"mode"` // mock, exec
	Command     string `yaml:"command"`
	ModelPath   string `yaml:"model_path"`
	Language    string `yaml:"language"`
	TimeoutMS   int    `yaml:"timeout_ms"`
	LeaseWaitMS int    `yaml:"lease_wait_ms"`
}

type LLMConfig struct {
	Mode             string  `yaml:"mode"` // mock, ollama, exec
	Command          string  `yaml:"command"`
	Endpoint         string  `yaml:"endpoint"`
	Model            string  `yaml:"model"`
	MaxContextTokens int     `yaml:"max_context_tokens"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	TimeoutMS        int     `yaml:"timeout_ms"`
}

type PipelineConfig struct {
	SummarizeAttempts int `yaml:"summarize_attempts"`
	RetryBackoffMS    int `yaml:"retry_backoff_ms"`
	RetentionMS       int `yaml:"retention_ms"`
	SweepIntervalMS   int `yaml:"sweep_interval_ms"`
}

type NotifyConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type JobLogConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxJobs       int    `yaml:"max_jobs"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

func Default() Config {
	return Config{
		ServiceName: "recapd",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
		},
		Intake: IntakeConfig{
			WorkDir:        "./data/uploads",
			MaxUploadBytes: 512 << 20,
			AllowedFormats: []string{"mp3", "wav", "m4a"},
		},
		ASR: ASRConfig{
			Mode:        "mock",
			TimeoutMS:   600000,
			LeaseWaitMS: 120000,
		},
		LLM: LLMConfig{
			Mode:             "mock",
			Endpoint:         "http://localhost:11434",
			Model:            "phi3.5",
			MaxContextTokens: 131072,
			MaxTokens:        2048,
			Temperature:      0.7,
			TimeoutMS:        180000,
		},
		Pipeline: PipelineConfig{
			SummarizeAttempts: 3,
			RetryBackoffMS:    2000,
			RetentionMS:       3600000,
			SweepIntervalMS:   60000,
		},
		Notify: NotifyConfig{
			Enabled:        false,
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		JobLog: JobLogConfig{
			Path:          "./data/recapd-jobs.db",
			RetentionMode: "ephemeral",
			RetentionDays: 30,
			MaxJobs:       10000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.ServiceName, "RECAP_SERVICE_NAME")
	overrideString(&cfg.Environment, "RECAP_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "RECAP_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "RECAP_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "RECAP_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "RECAP_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "RECAP_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Intake.WorkDir, "RECAP_INTAKE_WORK_DIR")
	overrideInt64(&cfg.Intake.MaxUploadBytes, "RECAP_INTAKE_MAX_UPLOAD_BYTES")
	overrideStringSlice(&cfg.Intake.AllowedFormats, "RECAP_INTAKE_ALLOWED_FORMATS")
	overrideString(&cfg.ASR.Mode, "RECAP_ASR_MODE")
	overrideString(&cfg.ASR.Command, "RECAP_ASR_COMMAND")
	overrideString(&cfg.ASR.ModelPath, "RECAP_ASR_MODEL_PATH")
	overrideString(&cfg.ASR.Language, "RECAP_ASR_LANGUAGE")
	overrideInt(&cfg.ASR.TimeoutMS, "RECAP_ASR_TIMEOUT_MS")
	overrideInt(&cfg.ASR.LeaseWaitMS, "RECAP_ASR_LEASE_WAIT_MS")
	overrideString(&cfg.LLM.Mode, "RECAP_LLM_MODE")
	overrideString(&cfg.LLM.Command, "RECAP_LLM_COMMAND")
	overrideString(&cfg.LLM.Endpoint, "RECAP_LLM_ENDPOINT")
	overrideString(&cfg.LLM.Model, "RECAP_LLM_MODEL")
	overrideInt(&cfg.LLM.MaxContextTokens, "RECAP_LLM_MAX_CONTEXT_TOKENS")
	overrideInt(&cfg.LLM.MaxTokens, "RECAP_LLM_MAX_TOKENS")
	overrideFloat(&cfg.LLM.Temperature, "RECAP_LLM_TEMPERATURE")
	overrideInt(&cfg.LLM.TimeoutMS, "RECAP_LLM_TIMEOUT_MS")
	overrideInt(&cfg.Pipeline.SummarizeAttempts, "RECAP_PIPELINE_SUMMARIZE_ATTEMPTS")
	overrideInt(&cfg.Pipeline.RetryBackoffMS, "RECAP_PIPELINE_RETRY_BACKOFF_MS")
	overrideInt(&cfg.Pipeline.RetentionMS, "RECAP_PIPELINE_RETENTION_MS")
	overrideInt(&cfg.Pipeline.SweepIntervalMS, "RECAP_PIPELINE_SWEEP_INTERVAL_MS")
	overrideBool(&cfg.Notify.Enabled, "RECAP_NOTIFY_ENABLED")
	overrideBool(&cfg.Notify.Embedded, "RECAP_NOTIFY_EMBEDDED")
	overrideInt(&cfg.Notify.Port, "RECAP_NOTIFY_PORT")
	overrideStringSlice(&cfg.Notify.Servers, "RECAP_NOTIFY_SERVERS")
	overrideString(&cfg.Notify.Username, "RECAP_NOTIFY_USERNAME")
	overrideString(&cfg.Notify.Password, "RECAP_NOTIFY_PASSWORD")
	overrideString(&cfg.Notify.Token, "RECAP_NOTIFY_TOKEN")
	overrideBool(&cfg.Notify.TLSInsecure, "RECAP_NOTIFY_TLS_INSECURE")
	overrideInt(&cfg.Notify.ConnectTimeout, "RECAP_NOTIFY_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.JobLog.Path, "RECAP_JOB_LOG_PATH")
	overrideString(&cfg.JobLog.RetentionMode, "RECAP_JOB_LOG_RETENTION_MODE")
	overrideInt(&cfg.JobLog.RetentionDays, "RECAP_JOB_LOG_RETENTION_DAYS")
	overrideInt(&cfg.JobLog.MaxJobs, "RECAP_JOB_LOG_MAX_JOBS")
	overrideBool(&cfg.JobLog.VacuumOnStart, "RECAP_JOB_LOG_VACUUM_ON_START")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.ServiceName == "" {
		return errors.New("service_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Intake.WorkDir == "" {
		return errors.New("intake.work_dir must not be empty")
	}
	if cfg.Intake.MaxUploadBytes <= 0 {
		return errors.New("intake.max_upload_bytes must be positive")
	}
	if len(cfg.Intake.AllowedFormats) == 0 {
		return errors.New("intake.allowed_formats must not be empty")
	}
	switch cfg.ASR.Mode {
	case "mock", "exec":
	default:
		return errors.New("asr.mode must be one of mock|exec")
	}
	if cfg.ASR.Mode == "exec" && cfg.ASR.Command == "" {
		return errors.New("asr.command must be set when mode=exec")
	}
	if cfg.ASR.TimeoutMS <= 0 {
		return errors.New("asr.timeout_ms must be positive")
	}
	if cfg.ASR.LeaseWaitMS <= 0 {
		return errors.New("asr.lease_wait_ms must be positive")
	}
	switch cfg.LLM.Mode {
	case "mock", "ollama", "exec":
	default:
		return errors.New("llm.mode must be one of mock|ollama|exec")
	}
	if cfg.LLM.Mode == "ollama" && cfg.LLM.Endpoint == "" {
		return errors.New("llm.endpoint must be set when mode=ollama")
	}
	if cfg.LLM.Mode == "exec" && cfg.LLM.Command == "" {
		return errors.New("llm.command must be set when mode=exec")
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model must not be empty")
	}
	if cfg.LLM.MaxContextTokens <= 0 {
		return errors.New("llm.max_context_tokens must be positive")
	}
	if cfg.LLM.MaxTokens < 0 {
		return errors.New("llm.max_tokens must be >= 0")
	}
	if cfg.LLM.TimeoutMS <= 0 {
		return errors.New("llm.timeout_ms must be positive")
	}
	if cfg.Pipeline.SummarizeAttempts <= 0 {
		return errors.New("pipeline.summarize_attempts must be >= 1")
	}
	if cfg.Pipeline.RetryBackoffMS < 0 {
		return errors.New("pipeline.retry_backoff_ms must be >= 0")
	}
	if cfg.Pipeline.RetentionMS <= 0 {
		return errors.New("pipeline.retention_ms must be positive")
	}
	if cfg.Pipeline.SweepIntervalMS <= 0 {
		return errors.New("pipeline.sweep_interval_ms must be positive")
	}
	if cfg.Notify.Enabled {
		if cfg.Notify.Embedded {
			if cfg.Notify.Port <= 0 || cfg.Notify.Port > 65535 {
				return errors.New("notify.port must be between 1 and 65535 when embedded mode is enabled")
			}
		} else if len(cfg.Notify.Servers) == 0 {
			return errors.New("notify.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.JobLog.Path == "" {
		return errors.New("job_log.path must not be empty")
	}
	switch cfg.JobLog.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("job_log.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.JobLog.RetentionDays < 0 {
		return errors.New("job_log.retention_days must be >= 0")
	}
	return nil
}
