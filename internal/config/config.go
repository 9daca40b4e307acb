// Package config provides configuration loading, validation, and management
// for the bot. It handles reading from YAML files, BOT_* environment
// variables, default values, and validation of configuration parameters.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/viper"
)

// Config defines the application configuration for all components:
// logging, Telegram transport, the Gemini client, the message store,
// the digest pipeline, retention, and task scheduling.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Digest    DigestConfig    `mapstructure:"digest"`
	Retention RetentionConfig `mapstructure:"retention"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log level and output format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and runtime bot identity.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`

	// BotInfo is populated at startup from GetMe, not from the config file.
	BotInfo *models.User `mapstructure:"-"`
}

// GeminiConfig holds the chat-completion client settings, including the
// system instructions injected into the digest pipeline.
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"     validate:"required"`
	Model       string  `mapstructure:"model"       validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int32   `mapstructure:"max_tokens"  validate:"min=1"`

	MaxRetries        int `mapstructure:"max_retries"         validate:"min=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"min=0"`

	SummarizeInstruction string `mapstructure:"summarize_instruction" validate:"required"`
	AnswerInstruction    string `mapstructure:"answer_instruction"    validate:"required"`
}

// DatabaseConfig holds the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// DigestConfig holds the windowing, batching, and markup settings of the
// digest pipeline.
type DigestConfig struct {
	MaxWindow            int           `mapstructure:"max_window"             validate:"min=1"`
	AskWindow            int           `mapstructure:"ask_window"             validate:"min=1"`
	ScheduledWindowHours int           `mapstructure:"scheduled_window_hours" validate:"min=1"`
	ActivityThreshold    int           `mapstructure:"activity_threshold"     validate:"min=0"`
	Partitions           int           `mapstructure:"partitions"             validate:"min=1"`
	TickWidthMinutes     int           `mapstructure:"tick_width_minutes"     validate:"min=1"`
	GroupCacheTTL        time.Duration `mapstructure:"group_cache_ttl"        validate:"min=1s"`

	RefPrefix         string `mapstructure:"ref_prefix"         validate:"required"`
	MaxMessageLength  int    `mapstructure:"max_message_length" validate:"min=64"`
	TruncationReserve int    `mapstructure:"truncation_reserve" validate:"min=0"`

	// SendRetries governs outbound digest/answer sends: a transient send
	// failure is retried before the reply is given up on.
	SendRetries           int `mapstructure:"send_retries"             validate:"min=0"`
	SendRetryDelaySeconds int `mapstructure:"send_retry_delay_seconds" validate:"min=0"`

	// BlockedGroupIDs is the externally maintained deny-list of groups
	// excluded from scheduled digesting.
	BlockedGroupIDs []int64 `mapstructure:"blocked_group_ids"`
}

// RetentionConfig bounds stored history. The daily window gates both
// deletions so overlapping ticks never run them twice.
type RetentionConfig struct {
	MaxMessagesPerGroup int    `mapstructure:"max_messages_per_group" validate:"min=1"`
	ImageMaxAgeHours    int    `mapstructure:"image_max_age_hours"    validate:"min=1"`
	Timezone            string `mapstructure:"timezone"               validate:"required"`
	WindowStartHour     int    `mapstructure:"window_start_hour"      validate:"min=0,max=23"`
	WindowWidthMinutes  int    `mapstructure:"window_width_minutes"   validate:"min=1,max=59"`
}

// TaskConfig enables a scheduled task and sets its cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// WebhookConfig switches the bot from long polling to webhook mode.
type WebhookConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
	Path       string `mapstructure:"path"`
}

// MessagesConfig holds the user-facing reply strings.
type MessagesConfig struct {
	SummaryUsage    string `mapstructure:"summary_usage"`
	InvalidFormat   string `mapstructure:"invalid_format"`
	NoMessages      string `mapstructure:"no_messages"`
	GeneralError    string `mapstructure:"general_error"`
	SummaryError    string `mapstructure:"summary_error"`
	SendError       string `mapstructure:"send_error"`
	BlockedFmt      string `mapstructure:"blocked_fmt"`
	ProvideQuestion string `mapstructure:"provide_question"`
	ProvideKeyword  string `mapstructure:"provide_keyword"`
	AskReceived     string `mapstructure:"ask_received"`
	AskOpenPrivate  string `mapstructure:"ask_open_private"`
	SearchHeader    string `mapstructure:"search_header"`
	EmptyReply      string `mapstructure:"empty_reply"`
	StatusFmt       string `mapstructure:"status_fmt"`
}

// LoadConfig reads configuration from the given YAML file (optional),
// applies BOT_* environment overrides, fills defaults, and validates the
// result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Missing config file is fine, defaults plus env cover it.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Retention.Timezone); err != nil {
		return nil, fmt.Errorf("invalid retention timezone %q: %w", cfg.Retention.Timezone, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.max_tokens", 4096)
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 2)
	v.SetDefault("gemini.summarize_instruction", DefaultSummarizeInstruction)
	v.SetDefault("gemini.answer_instruction", DefaultAnswerInstruction)

	v.SetDefault("digest.max_window", 4000)
	v.SetDefault("digest.ask_window", 1000)
	v.SetDefault("digest.scheduled_window_hours", 24)
	v.SetDefault("digest.activity_threshold", 10)
	v.SetDefault("digest.partitions", 10)
	v.SetDefault("digest.tick_width_minutes", 6)
	v.SetDefault("digest.group_cache_ttl", 20*time.Minute)
	v.SetDefault("digest.ref_prefix", "ref")
	v.SetDefault("digest.max_message_length", 4096)
	v.SetDefault("digest.truncation_reserve", 24)
	v.SetDefault("digest.send_retries", 3)
	v.SetDefault("digest.send_retry_delay_seconds", 2)

	v.SetDefault("retention.max_messages_per_group", 3000)
	v.SetDefault("retention.image_max_age_hours", 24)
	v.SetDefault("retention.timezone", "UTC")
	v.SetDefault("retention.window_start_hour", 0)
	v.SetDefault("retention.window_width_minutes", 5)

	v.SetDefault("scheduler.tasks", map[string]any{
		"digest_broadcast": map[string]any{"enabled": true, "schedule": "*/6 * * * *"},
		"retention":        map[string]any{"enabled": true, "schedule": "*/6 * * * *"},
	})

	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.listen_addr", ":8080")
	v.SetDefault("webhook.path", "/webhook")

	v.SetDefault("messages.summary_usage", "Please provide a time span or message count, e.g. /summary 12h or /summary 200")
	v.SetDefault("messages.invalid_format", "Invalid format: %s")
	v.SetDefault("messages.no_messages", "No messages found")
	v.SetDefault("messages.general_error", "An error occurred. Please try again later.")
	v.SetDefault("messages.summary_error", "Failed to generate the summary")
	v.SetDefault("messages.send_error", "Failed to send the summary")
	v.SetDefault("messages.blocked_fmt", "Unable to answer, reason: %s")
	v.SetDefault("messages.provide_question", "Please provide a question")
	v.SetDefault("messages.provide_keyword", "Please provide a keyword to search for")
	v.SetDefault("messages.ask_received", "Got your question, please wait")
	v.SetDefault("messages.ask_open_private", "Please open a private chat with the bot first, otherwise it cannot message you")
	v.SetDefault("messages.search_header", "Search results:")
	v.SetDefault("messages.empty_reply", "I don't have a response at this time.")
	v.SetDefault("messages.status_fmt", "Up for %s, %d messages stored")
}
