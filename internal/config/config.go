package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	dbUserEmptyError = errors.New("DB User is Empty")
	dbNameEmptyError = errors.New("DB Name is Empty")
	envLoadError     = errors.New(".env load Error")
	durationError    = errors.New("invalid duration")
)

type AppConfig struct {
	Env            string
	Port           string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host           string
	Port           string
	Name           string
	Password       string
	User           string
	URL            string
	MigrationsPath string
}

type ChatConfig struct {
	// APIEndpoint - базовый адрес Google Chat API, переопределяется в тестах
	APIEndpoint    string
	MemberCacheTTL time.Duration
	NotifyTimeout  time.Duration
}

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Chat     ChatConfig
}

func LoadConfig() (*Config, error) {
	// .env опционален, переменные окружения имеют приоритет
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", envLoadError, err)
	}

	requestTimeout, err := getEnvDuration("APP_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvDuration("CHAT_MEMBER_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	notifyTimeout, err := getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	c := &Config{
		App: AppConfig{
			Env:            getEnv("APP_ENV", "dev"),
			Port:           getEnv("APP_PORT", "8080"),
			RequestTimeout: requestTimeout,
		},
		Database: DatabaseConfig{
			Host:           getEnv("DATABASE_HOST", "localhost"),
			Port:           getEnv("DATABASE_PORT", "5432"),
			Name:           getEnv("DATABASE_NAME", "postgres"),
			Password:       getEnv("DATABASE_PASSWORD", "postgres"),
			User:           getEnv("DATABASE_USER", "postgres"),
			URL:            os.Getenv("DATABASE_URL"),
			MigrationsPath: getEnv("DATABASE_MIGRATIONS_PATH", "migrations"),
		},
		Chat: ChatConfig{
			APIEndpoint:    getEnv("CHAT_API_ENDPOINT", "https://chat.googleapis.com/"),
			MemberCacheTTL: cacheTTL,
			NotifyTimeout:  notifyTimeout,
		},
	}
	err = makeDbUrl(c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", durationError, key, v)
	}
	return d, nil
}

func makeDbUrl(cfg *Config) error {
	if cfg.Database.URL == "" {
		if cfg.Database.User == "" {
			return dbUserEmptyError
		}
		if cfg.Database.Name == "" {
			return dbNameEmptyError
		}
		cfg.Database.URL = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Name,
		)
	}
	return nil
}
