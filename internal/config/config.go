package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName              string
	AppEnv               string
	AppPort              string
	DatabaseURL          string
	RedisURL             string
	NATSURL              string
	JWTSecret            string
	SessionTTL           time.Duration
	AIProvider           string
	AIModel              string
	GeminiAPIKey         string
	GeminiBaseURL        string
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	ClassroomBaseURL     string
	ClassroomCutoff      time.Time
	ClassroomConcurrency int
	CalendarBaseURL      string
	CalendarID           string
	DisplayOffsetMinutes int
	DisplayLabel         string
	AIRateLimit          int
	AIRateWindow         time.Duration
	SyncRunRetention     time.Duration
	RetentionSchedule    string
	CORSAllowOrigins     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("DEADLINES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Deadline Sync API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("session.ttl", "12h")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("classroom.cutoff", "2025-03-23T00:00:00Z")
	v.SetDefault("classroom.concurrency", 4)
	v.SetDefault("calendar.id", "primary")
	v.SetDefault("display.offset_minutes", 330)
	v.SetDefault("display.label", "IST")
	v.SetDefault("ratelimit.ai_max", 10)
	v.SetDefault("ratelimit.ai_window", "1m")
	v.SetDefault("sync_run.retention", "720h")
	v.SetDefault("sync_run.schedule", "0 3 * * *")
	v.SetDefault("cors.allow_origins", "*")

	// Provider credentials keep their conventional unprefixed names.
	_ = v.BindEnv("gemini_api_key", "DEADLINES_GEMINI_API_KEY", "GEMINI_API_KEY")
	_ = v.BindEnv("openai_api_key", "DEADLINES_OPENAI_API_KEY", "OPENAI_API_KEY")

	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "ratelimit.ai_window")
	if err != nil {
		return Config{}, err
	}
	retention, err := parseDuration(v, "sync_run.retention")
	if err != nil {
		return Config{}, err
	}

	cutoff, err := time.Parse(time.RFC3339, v.GetString("classroom.cutoff"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid classroom cutoff: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSURL:              v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		SessionTTL:           sessionTTL,
		AIProvider:           strings.ToLower(v.GetString("ai.provider")),
		AIModel:              v.GetString("ai.model"),
		GeminiAPIKey:         v.GetString("gemini_api_key"),
		GeminiBaseURL:        v.GetString("gemini.base_url"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		OpenAIBaseURL:        v.GetString("openai.base_url"),
		ClassroomBaseURL:     v.GetString("classroom.base_url"),
		ClassroomCutoff:      cutoff.UTC(),
		ClassroomConcurrency: v.GetInt("classroom.concurrency"),
		CalendarBaseURL:      v.GetString("calendar.base_url"),
		CalendarID:           v.GetString("calendar.id"),
		DisplayOffsetMinutes: v.GetInt("display.offset_minutes"),
		DisplayLabel:         v.GetString("display.label"),
		AIRateLimit:          v.GetInt("ratelimit.ai_max"),
		AIRateWindow:         rateWindow,
		SyncRunRetention:     retention,
		RetentionSchedule:    v.GetString("sync_run.schedule"),
		CORSAllowOrigins:     v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ClassroomConcurrency <= 0 {
		cfg.ClassroomConcurrency = 4
	}

	if cfg.AIRateLimit <= 0 {
		cfg.AIRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}
