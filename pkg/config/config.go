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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	Auth        AuthConfig
	Maintenance MaintenanceConfig
	Routing     RoutingConfig
	Frontend    FrontendConfig
	CORS        CORSConfig
	Log         LogConfig
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

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig governs session lifetime, transport and housekeeping.
type SessionConfig struct {
	TTL             time.Duration
	SlidingExpiry   bool
	CookieName      string
	CookieSecret    string
	CookieSameSite  string
	CacheEnabled    bool
	CacheTTL        time.Duration
	SweeperEnabled  bool
	CleanupInterval time.Duration
}

// AuthConfig tunes credential hashing.
type AuthConfig struct {
	BcryptCost int
}

// MaintenanceConfig secures operator endpoints such as the session cleanup trigger.
type MaintenanceConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// RoutingConfig points at an optional role routing policy override.
type RoutingConfig struct {
	PolicyFile string
}

// FrontendConfig points at built frontend assets served behind the route guard.
type FrontendConfig struct {
	Dir            string
	PublicPrefixes []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SecureCookies reports whether session cookies must carry the Secure attribute.
func (c *Config) SecureCookies() bool {
	return c.Env == EnvProduction
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

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		TTL:             parseDuration(v.GetString("SESSION_TTL"), 24*time.Hour),
		SlidingExpiry:   v.GetBool("SESSION_SLIDING_EXPIRY"),
		CookieName:      v.GetString("SESSION_COOKIE_NAME"),
		CookieSecret:    v.GetString("SESSION_COOKIE_SECRET"),
		CookieSameSite:  v.GetString("SESSION_COOKIE_SAMESITE"),
		CacheEnabled:    v.GetBool("ENABLE_SESSION_CACHE"),
		CacheTTL:        parseDuration(v.GetString("SESSION_CACHE_TTL"), 5*time.Minute),
		SweeperEnabled:  v.GetBool("ENABLE_SESSION_SWEEPER"),
		CleanupInterval: parseDuration(v.GetString("SESSION_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Auth = AuthConfig{BcryptCost: v.GetInt("BCRYPT_COST")}

	cfg.Maintenance = MaintenanceConfig{
		TokenSecret: v.GetString("MAINTENANCE_TOKEN_SECRET"),
		TokenTTL:    parseDuration(v.GetString("MAINTENANCE_TOKEN_TTL"), 15*time.Minute),
	}

	cfg.Routing = RoutingConfig{PolicyFile: v.GetString("ROUTE_POLICY_FILE")}

	cfg.Frontend = FrontendConfig{
		Dir:            v.GetString("FRONTEND_DIR"),
		PublicPrefixes: splitAndTrim(v.GetString("FRONTEND_PUBLIC_PREFIXES")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wellbeing")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_SLIDING_EXPIRY", false)
	v.SetDefault("SESSION_COOKIE_NAME", "wellbeing_session")
	v.SetDefault("SESSION_COOKIE_SECRET", "dev_cookie_secret_change_me_32b!")
	v.SetDefault("SESSION_COOKIE_SAMESITE", "lax")
	v.SetDefault("ENABLE_SESSION_CACHE", false)
	v.SetDefault("SESSION_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_SESSION_SWEEPER", false)
	v.SetDefault("SESSION_CLEANUP_INTERVAL", "1h")

	v.SetDefault("BCRYPT_COST", 12)

	v.SetDefault("MAINTENANCE_TOKEN_SECRET", "")
	v.SetDefault("MAINTENANCE_TOKEN_TTL", "15m")

	v.SetDefault("ROUTE_POLICY_FILE", "")

	v.SetDefault("FRONTEND_DIR", "")
	v.SetDefault("FRONTEND_PUBLIC_PREFIXES", "/auth,/assets,/favicon.ico")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
