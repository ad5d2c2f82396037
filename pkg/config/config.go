package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	StoreDriver string
	Database    DatabaseConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Session     SessionConfig
	CORS        CORSConfig
	Log         LogConfig
	Codes       CodeConfig
	Roster      RosterConfig
	Reconcile   ReconcileConfig
	Events      EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// MongoConfig points at the document database used when STORE_DRIVER=mongo.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig signs and expires portal sessions.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// CodeConfig bounds instructor code allocation.
type CodeConfig struct {
	MaxAttempts int
}

// RosterConfig governs roster caching.
type RosterConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// ReconcileConfig tunes the registration repair worker pool.
type ReconcileConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
}

// EventsConfig configures domain event publishing. An empty URL disables it.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))
	if cfg.StoreDriver != StoreMongo {
		cfg.StoreDriver = StorePostgres
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Mongo = MongoConfig{
		URI:      v.GetString("MONGO_URI"),
		Database: v.GetString("MONGO_DATABASE"),
		Timeout:  parseDuration(v.GetString("MONGO_TIMEOUT"), 10*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		Secret: v.GetString("JWT_SECRET"),
		TTL:    parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		Issuer: v.GetString("SESSION_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxAttempts := v.GetInt("CODE_MAX_ATTEMPTS")
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	cfg.Codes = CodeConfig{MaxAttempts: maxAttempts}

	cfg.Roster = RosterConfig{
		CacheEnabled: v.GetBool("ROSTER_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("ROSTER_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Reconcile = ReconcileConfig{
		Workers:    v.GetInt("RECONCILE_WORKERS"),
		Retries:    v.GetInt("RECONCILE_RETRIES"),
		RetryDelay: parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Events = EventsConfig{
		NATSURL:       v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("STORE_DRIVER", StorePostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "portal_sabido")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "portal_sabido")
	v.SetDefault("MONGO_TIMEOUT", "10s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_ISSUER", "portal-sabido")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CODE_MAX_ATTEMPTS", 10)
	v.SetDefault("ROSTER_CACHE_ENABLED", false)
	v.SetDefault("ROSTER_CACHE_TTL", "2m")

	v.SetDefault("RECONCILE_WORKERS", 2)
	v.SetDefault("RECONCILE_RETRIES", 3)
	v.SetDefault("RECONCILE_RETRY_DELAY", "2s")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "portal")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
