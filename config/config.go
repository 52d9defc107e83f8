package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/raine/mural-table-bot/internal/scheduler"
	"github.com/rs/zerolog/log"
)

const (
	AppName     = "mural-table-bot"
	EnvFileName = "config.env"
)

const (
	DefaultHTTPAddr        = ":8501"
	DefaultSessionIdle     = 12 * time.Hour
	DefaultDBPath          = "mural.db"
	DefaultCacheMaxAge     = 30 * 24 * time.Hour
	DefaultMaintenanceCron = "0 4 * * *"
)

var ErrNoFrontEnd = errors.New("no front end enabled: set BOT_TOKEN or HTTP_ADDR")

type Config struct {
	GoogleAPIKey    string
	Model           string
	ModelPreference []string
	ModelPolicy     llm.ModelPolicy
	AnalyzeTimeout  time.Duration

	// Telegram front end, disabled when BotToken is empty
	BotToken string
	AdminID  int64

	// Web front end, disabled when HTTPAddr is empty
	HTTPAddr      string
	SessionSecret string
	SessionIdle   time.Duration

	DBPath          string
	CacheMaxAge     time.Duration
	MaintenanceCron string
}

// ModelSelection returns the model settings for llm.ResolveModel.
func (c Config) ModelSelection() llm.ModelSelection {
	return llm.ModelSelection{
		Policy:     c.ModelPolicy,
		Preference: c.ModelPreference,
		Default:    c.Model,
	}
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory and then from .env in the working directory. Errors are
// ignored since the files may not exist. Variables already set win.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load()
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg, err := LoadAnalyzer()
	if err != nil {
		return cfg, err
	}

	cfg.BotToken = os.Getenv("BOT_TOKEN")
	cfg.HTTPAddr = DefaultHTTPAddr
	// An explicitly empty HTTP_ADDR disables the web front end.
	if addr, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = strings.TrimSpace(addr)
	}
	cfg.SessionSecret = os.Getenv("WEB_SESSION_SECRET")
	cfg.MaintenanceCron = envOrDefault("MAINTENANCE_CRON", DefaultMaintenanceCron)

	if cfg.SessionIdle, err = envDuration("WEB_SESSION_IDLE", DefaultSessionIdle); err != nil {
		return cfg, err
	}
	if cfg.CacheMaxAge, err = envDuration("VISION_CACHE_MAX_AGE", DefaultCacheMaxAge); err != nil {
		return cfg, err
	}
	if err := scheduler.ValidateSpec(cfg.MaintenanceCron); err != nil {
		return cfg, fmt.Errorf("invalid MAINTENANCE_CRON: %w", err)
	}

	if cfg.BotToken != "" {
		adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
		if adminIDStr == "" {
			return cfg, errors.New("ADMIN_TELEGRAM_ID is not set")
		}
		if cfg.AdminID, err = strconv.ParseInt(adminIDStr, 10, 64); err != nil {
			return cfg, fmt.Errorf("ADMIN_TELEGRAM_ID must be a valid integer: %w", err)
		}
	}

	if cfg.BotToken == "" && cfg.HTTPAddr == "" {
		return cfg, ErrNoFrontEnd
	}
	return cfg, nil
}

// LoadAnalyzer reads only the model, timeout and database settings. The
// command line extractor uses it since it has no front end.
func LoadAnalyzer() (Config, error) {
	cfg := Config{
		GoogleAPIKey:    firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY"),
		Model:           llm.NormalizeModelName(envOrDefault("GEMINI_MODEL", llm.DefaultModel)),
		ModelPreference: envList("GEMINI_MODELS", llm.DefaultModelPreference),
		DBPath:          envOrDefault("MURAL_DB_PATH", DefaultDBPath),
	}
	if cfg.GoogleAPIKey == "" {
		return cfg, errors.New("GOOGLE_API_KEY is not set")
	}

	var err error
	if cfg.ModelPolicy, err = llm.ParseModelPolicy(os.Getenv("GEMINI_MODEL_POLICY")); err != nil {
		return cfg, fmt.Errorf("invalid GEMINI_MODEL_POLICY: %w", err)
	}
	if cfg.AnalyzeTimeout, err = envDuration("ANALYZE_TIMEOUT", llm.DefaultAnalyzeTimeout); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

func envList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = llm.NormalizeModelName(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// Fatal logs a startup error and exits. On Windows it waits for Enter so a
// double-clicked console window does not close before the message is read.
func Fatal(format string, a ...any) {
	log.Error().Msgf(format, a...)
	if runtime.GOOS == "windows" {
		fmt.Fprintln(os.Stderr, "Press Enter to exit...")
		fmt.Scanln()
	}
	os.Exit(1)
}
