// Package config loads cartrecovery settings from defaults, an optional YAML
// file and CARTRECOVERY_* environment variables, in increasing precedence.
package config

import "github.com/roach88/cartrecovery/internal/action"

// Config is the full application configuration.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"  validate:"required"`
	Log       LogConfig       `koanf:"log"`
	Engine    EngineConfig    `koanf:"engine"`
	Evaluate  EvaluateConfig  `koanf:"evaluate"`
	Schedule  ScheduleConfig  `koanf:"schedule"`
	Retention RetentionConfig `koanf:"retention"`
	Voucher   VoucherConfig   `koanf:"voucher"`
	Mail      MailConfig      `koanf:"mail"`
	Stats     StatsConfig     `koanf:"stats"`
}

type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

type EngineConfig struct {
	BatchSize int `koanf:"batch_size" validate:"min=1,max=10000"`
}

type EvaluateConfig struct {
	DefaultLimit int `koanf:"default_limit" validate:"min=1,ltefield=MaxLimit"`
	MaxLimit     int `koanf:"max_limit"     validate:"min=1,max=1000"`
}

type ScheduleConfig struct {
	Automation  string `koanf:"automation"   validate:"required,cron"`
	Cleanup     string `koanf:"cleanup"      validate:"required,cron"`
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`
}

// RetentionConfig controls cart cleanup. Days <= 0 disables it.
type RetentionConfig struct {
	Days int `koanf:"days"`
}

type VoucherConfig struct {
	DefaultPattern string `koanf:"default_pattern" validate:"required"`
}

type MailConfig struct {
	Language string `koanf:"language" validate:"required,bcp47_language_tag"`
}

type StatsConfig struct {
	Timezone string `koanf:"timezone" validate:"required,timezone"`
	TopN     int    `koanf:"top_n"    validate:"min=1,max=100"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "cartrecovery.db"},
		Log:      LogConfig{Level: "info"},
		Engine:   EngineConfig{BatchSize: 500},
		Evaluate: EvaluateConfig{DefaultLimit: 25, MaxLimit: 100},
		Schedule: ScheduleConfig{
			Automation: "@hourly",
			Cleanup:    "@daily",
		},
		Voucher: VoucherConfig{DefaultPattern: action.DefaultCodePattern},
		Mail:    MailConfig{Language: "en"},
		Stats:   StatsConfig{Timezone: "UTC", TopN: 10},
	}
}
