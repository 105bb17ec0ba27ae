package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	// AdminPassword seeds the first administrator account on an empty
	// database. Ignored once users exist.
	AdminPassword string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	School   SchoolConfig
	Dispatch DispatchConfig
	Cache    CacheConfig
	Exports  ExportsConfig
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	Path            string
	BusyTimeout     time.Duration
	MaxOpenConns    int
	SkipSeed        bool
	ForeignKeysOff  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchoolConfig carries institution-wide parameters, most importantly the
// bounded grade range used by promotion and demotion.
type SchoolConfig struct {
	MinGrade int
	MaxGrade int
	Groups   []string
}

// DispatchConfig sizes the notification fan-out queue.
type DispatchConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// CacheConfig controls the directory statistics cache.
type CacheConfig struct {
	TTL time.Duration
}

// ExportsConfig locates the on-disk export archive and parameterizes the
// signed download links pointing into it.
type ExportsConfig struct {
	Dir             string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	ResultTTL       time.Duration
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("ADMIN_PASSWORD", "escolar-admin")

	v.SetDefault("DB_PATH", "data/escolar.db")
	v.SetDefault("DB_BUSY_TIMEOUT", "5s")
	v.SetDefault("DB_MAX_OPEN_CONNS", 1)
	v.SetDefault("DB_SKIP_SEED", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION", "15m")
	v.SetDefault("JWT_ISSUER", "escolar-api")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHOOL_MIN_GRADE", 1)
	v.SetDefault("SCHOOL_MAX_GRADE", 6)
	v.SetDefault("SCHOOL_GROUPS", "A,B,C")

	v.SetDefault("DISPATCH_WORKERS", 2)
	v.SetDefault("DISPATCH_BUFFER_SIZE", 64)
	v.SetDefault("DISPATCH_MAX_RETRIES", 3)
	v.SetDefault("DISPATCH_RETRY_DELAY", "2s")

	v.SetDefault("CACHE_TTL", "5m")

	v.SetDefault("EXPORTS_DIR", "data/exports")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "escolar-exports")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")

	cfg := &Config{
		Env:           strings.ToLower(v.GetString("ENV")),
		Port:          v.GetInt("PORT"),
		APIPrefix:     v.GetString("API_PREFIX"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		Database: DatabaseConfig{
			Path:         v.GetString("DB_PATH"),
			BusyTimeout:  v.GetDuration("DB_BUSY_TIMEOUT"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			SkipSeed:     v.GetBool("DB_SKIP_SEED"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetDuration("JWT_EXPIRATION"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		School: SchoolConfig{
			MinGrade: v.GetInt("SCHOOL_MIN_GRADE"),
			MaxGrade: v.GetInt("SCHOOL_MAX_GRADE"),
			Groups:   splitAndTrim(v.GetString("SCHOOL_GROUPS")),
		},
		Dispatch: DispatchConfig{
			Workers:    v.GetInt("DISPATCH_WORKERS"),
			BufferSize: v.GetInt("DISPATCH_BUFFER_SIZE"),
			MaxRetries: v.GetInt("DISPATCH_MAX_RETRIES"),
			RetryDelay: v.GetDuration("DISPATCH_RETRY_DELAY"),
		},
		Cache: CacheConfig{
			TTL: v.GetDuration("CACHE_TTL"),
		},
		Exports: ExportsConfig{
			Dir:             v.GetString("EXPORTS_DIR"),
			SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
			SignedURLTTL:    v.GetDuration("EXPORTS_SIGNED_URL_TTL"),
			ResultTTL:       v.GetDuration("EXPORTS_RESULT_TTL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return errors.New("ENV must be development or production")
	}
	if c.Database.Path == "" {
		return errors.New("DB_PATH is required")
	}
	if c.School.MinGrade < 1 || c.School.MaxGrade <= c.School.MinGrade {
		return errors.New("SCHOOL_MIN_GRADE/SCHOOL_MAX_GRADE must define a valid range")
	}
	if c.Env == EnvProduction && c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
