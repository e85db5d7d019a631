package main

import (
	"os"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// StreamsConfig is the streams.* section of the YAML config.
type StreamsConfig struct {
	TimeoutSeconds  int `yaml:"timeout_seconds" env:"STREAM_TIMEOUT_SECONDS"`
	MaxConcurrent   int `yaml:"max_concurrent" env:"MAX_CONCURRENT_STREAMS"`
	MaxBufferFrames int `yaml:"max_buffer_frames"`
}

// RecordingConfig is the recording.* section of the YAML config.
type RecordingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Codec         string `yaml:"codec"`
	FPS           int    `yaml:"fps"`
	RetentionDays int    `yaml:"retention_days" env:"RECORDING_RETENTION_DAYS"`
	BaseDir       string `yaml:"base_dir"`
}

// CleanupConfig is the cleanup.* section of the YAML config.
type CleanupConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds"`
	ScheduleTime    string `yaml:"schedule_time"`
}

// ServerConfig is the server.* section of the YAML config.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" env:"SERVER_PORT"`
	CORSEnabled    bool   `yaml:"cors_enabled"`
	MaxFrameSizeMB int    `yaml:"max_frame_size_mb"`
	Debug          bool   `yaml:"debug" env:"SERVER_DEBUG"`
}

// Config is the top-level configuration surface, loaded from YAML and then
// overlaid by a small set of environment variables. LogLevel is a top-level
// field (no YAML section of its own) so it can be overridden the same way.
type Config struct {
	Streams   StreamsConfig   `yaml:"streams"`
	Recording RecordingConfig `yaml:"recording"`
	Cleanup   CleanupConfig   `yaml:"cleanup"`
	Server    ServerConfig    `yaml:"server"`
	LogLevel  string          `yaml:"log_level" env:"LOG_LEVEL"`
}

func defaultConfig() *Config {
	return &Config{
		Streams: StreamsConfig{
			TimeoutSeconds:  DefaultStreamTimeoutS,
			MaxConcurrent:   DefaultMaxConcurrent,
			MaxBufferFrames: DefaultMaxBufferFrames,
		},
		Recording: RecordingConfig{
			Enabled:       DefaultRecordingEnabled,
			Codec:         DefaultRecordingCodec,
			FPS:           DefaultRecordingFPS,
			RetentionDays: DefaultRetentionDays,
			BaseDir:       "recordings",
		},
		Cleanup: CleanupConfig{
			IntervalSeconds: DefaultCleanupInterval,
			ScheduleTime:    DefaultScheduleTime,
		},
		Server: ServerConfig{
			Host:           DefaultServerHost,
			Port:           DefaultServerPort,
			CORSEnabled:    true,
			MaxFrameSizeMB: DefaultMaxFrameSizeMB,
		},
		LogLevel: "info",
	}
}

// LoadConfig reads configPath as YAML over the built-in defaults, then
// overlays environment variables. A missing or unreadable file falls back
// to the defaults rather than failing startup, matching the original's
// Config._get_default_config behavior.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
