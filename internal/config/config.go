// Package config loads application configuration from the environment.
// A .env file in the working directory is applied first when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each group has its own
// LoadXxxConfig so middleware and workers can be configured independently.
type Config struct {
	Env            string        // APP_ENV: development | production | test
	Port           string        // APP_PORT
	LogLevel       string        // LOG_LEVEL
	RequestTimeout time.Duration // HTTP_REQUEST_TIMEOUT, also bounds the booking transaction
	JWTSecret      string        // JWT_SECRET, verifies bearer tokens
	BcryptCost     int           // BCRYPT_COST for registration requests

	DB        DBConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	AMQP      AMQPConfig
	Dialogue  DialogueConfig
}

// DBConfig describes the MySQL connection.
type DBConfig struct {
	User     string
	Pass     string
	Host     string
	Port     string
	Name     string
	LockWait time.Duration // innodb_lock_wait_timeout applied per session
}

// Load reads .env (if any) and the process environment.  Call Validate on
// the result before using it.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:            envStr("APP_ENV", "development"),
		Port:           envStr("APP_PORT", "8080"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		RequestTimeout: envDur("HTTP_REQUEST_TIMEOUT", 10*time.Second),
		JWTSecret:      envStr("JWT_SECRET", ""),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		DB:             LoadDBConfig(),
		Redis:          LoadRedisConfig(),
		Cache:          LoadCacheConfig(),
		RateLimit:      LoadRateLimitConfig(),
		AMQP:           LoadAMQPConfig(),
		Dialogue:       LoadDialogueConfig(),
	}
}

// LoadDBConfig reads the DB_* variables.
func LoadDBConfig() DBConfig {
	return DBConfig{
		User:     envStr("DB_USER", ""),
		Pass:     envStr("DB_PASS", ""),
		Host:     envStr("DB_HOST", "127.0.0.1"),
		Port:     envStr("DB_PORT", "3306"),
		Name:     envStr("DB_NAME", ""),
		LockWait: envDur("DB_LOCK_WAIT", 5*time.Second),
	}
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

// Validate reports every missing or out of range value at once.
func (c Config) Validate() error {
	var errs []error
	required := map[string]string{
		"APP_PORT":   c.Port,
		"DB_USER":    c.DB.User,
		"DB_HOST":    c.DB.Host,
		"DB_NAME":    c.DB.Name,
		"JWT_SECRET": c.JWTSecret,
	}
	for _, k := range []string{"APP_PORT", "DB_USER", "DB_HOST", "DB_NAME", "JWT_SECRET"} {
		if required[k] == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", k))
		}
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST out of range: %d", c.BcryptCost))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_REQUEST_TIMEOUT must be positive"))
	}
	switch c.AMQP.Sink {
	case SinkSQL, SinkAMQP:
	default:
		errs = append(errs, fmt.Errorf("ANALYTICS_SINK must be %q or %q, got %q", SinkSQL, SinkAMQP, c.AMQP.Sink))
	}
	return errors.Join(errs...)
}
