// Package config читает настройки окружения и профиль портала.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
)

type Cfg struct {
	Database   Database
	Logger     Logger
	OpenAI     OpenAI
	Browser    Browser
	Fetch      Fetch
	Migrations Migrations
	App        App
	Home       string
	Auth       Auth
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Enabled: история включается только если задан хост БД.
func (d Database) Enabled() bool {
	return d.Host != ""
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
	File  string
}

type OpenAI struct {
	KeyAI     string
	Model     string
	MaxTokens int
}

type Browser struct {
	Engine          string
	Headless        bool
	BrowsersPath    string
	Timeout         time.Duration
	NavigateTimeout time.Duration
	SettleDelay     time.Duration
}

// Fetch - повторы выгрузки. Повторяется только NoDataFound.
type Fetch struct {
	Retries    int
	RetryDelay time.Duration
}

type App struct {
	Host string
	Port string
}

// Auth - учётные данные из окружения. Никогда не пишутся на диск.
type Auth struct {
	Username string
	Password string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     env("DB_PORT", "5432"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
			File:  expandPath(os.Getenv("LOG_FILE")),
		},
		OpenAI: OpenAI{
			KeyAI:     os.Getenv("OPENAI_API_KEY"),
			Model:     env("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: envInt("OPENAI_MAX_TOKENS", 1000),
		},
		Browser: Browser{
			Engine:          env("PW_BROWSER", "chromium"),
			Headless:        envBoolDefault("PW_HEADLESS", true),
			BrowsersPath:    env("PLAYWRIGHT_BROWSERS_PATH", ""),
			Timeout:         envDuration("PW_TIMEOUT", 30*time.Second),
			NavigateTimeout: envDuration("PW_NAVIGATE_TIMEOUT", 60*time.Second),
			SettleDelay:     envDuration("PW_SETTLE_DELAY", 3*time.Second),
		},
		Fetch: Fetch{
			Retries:    envInt("FETCH_RETRIES", 2),
			RetryDelay: envDuration("FETCH_RETRY_DELAY", 5*time.Second),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
		App: App{
			Host: env("APP_HOST", "127.0.0.1"),
			Port: env("APP_PORT", "5000"),
		},
		Home: expandPath(env("UNITRACK_HOME", defaultHome())),
		Auth: Auth{
			Username: os.Getenv("UNITRACK_USERNAME"),
			Password: os.Getenv("UNITRACK_PASSWORD"),
		},
	}

	return cfg, nil
}

// ProfilePath - путь к YAML-профилю портала.
func (c *Cfg) ProfilePath() string {
	return filepath.Join(c.Home, "config.yaml")
}

// CachePath - путь к кэшу последней выгрузки.
func (c *Cfg) CachePath() string {
	return filepath.Join(c.Home, "attendance_cache.json")
}

func defaultHome() string {
	home, err := homedir.Dir()
	if err != nil {
		return ".unitrack"
	}
	return filepath.Join(home, ".unitrack")
}

// expandPath раскрывает ~ в путях из окружения.
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envBoolDefault(key string, defaultValue bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// envDuration принимает "45s", "2m" или просто число секунд.
func envDuration(key string, defaultValue time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}
