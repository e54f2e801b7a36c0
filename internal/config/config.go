package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenancy/internal/tenant"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Tenancy  TenancyConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
}

// TenancyConfig selects the isolation strategy and the statically known
// tenants.
type TenancyConfig struct {
	Mode         tenant.Mode
	Tenants      []tenant.ID
	SchemaPrefix string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string //nolint:gosec // G117: DB connection config
	DBName         string
	SSLMode        string
	MaxConns       int
	TenantMaxConns int
	ConnectRetries int
	RetryInterval  time.Duration
}

// RedisConfig holds Redis connection settings. An empty Addr disables the
// cache and event publishing.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
	CacheTTL time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

var schemaPrefixPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,14}$`)

// Load reads configuration from environment variables.
// Defaults are safe for local development only.
func Load() (*Config, error) {
	mode, err := tenant.ParseMode(getEnv("TENANCY_MODE", string(tenant.ModePartition)))
	if err != nil {
		return nil, fmt.Errorf("config.Load: TENANCY_MODE: %w", err)
	}

	dbPort, err := getEnvInt("TENANCY_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("TENANCY_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tenantMaxConns, err := getEnvInt("TENANCY_DB_TENANT_MAX_CONNS", 4)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	connectRetries, err := getEnvInt("TENANCY_DB_CONNECT_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	retryInterval, err := getEnvDuration("TENANCY_DB_RETRY_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("TENANCY_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cacheTTL, err := getEnvDuration("TENANCY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rawTenants := getEnvList("TENANCY_TENANTS", nil)
	tenants := make([]tenant.ID, 0, len(rawTenants))
	for _, raw := range rawTenants {
		id, parseErr := tenant.ParseID(raw)
		if parseErr != nil {
			return nil, fmt.Errorf("config.Load: TENANCY_TENANTS: %w", parseErr)
		}
		tenants = append(tenants, id)
	}

	cfg := &Config{
		Tenancy: TenancyConfig{
			Mode:         mode,
			Tenants:      tenants,
			SchemaPrefix: getEnv("TENANCY_SCHEMA_PREFIX", "tenant_"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("TENANCY_DB_HOST", "localhost"),
			Port:           dbPort,
			User:           getEnv("TENANCY_DB_USER", "tenancy"),
			Password:       getEnv("TENANCY_DB_PASSWORD", ""),
			DBName:         getEnv("TENANCY_DB_NAME", "tenancy"),
			SSLMode:        getEnv("TENANCY_DB_SSLMODE", "disable"),
			MaxConns:       dbMaxConns,
			TenantMaxConns: tenantMaxConns,
			ConnectRetries: connectRetries,
			RetryInterval:  retryInterval,
		},
		Redis: RedisConfig{
			Addr:     getEnv("TENANCY_REDIS_ADDR", ""),
			Password: getEnv("TENANCY_REDIS_PASSWORD", ""),
			DB:       redisDB,
			CacheTTL: cacheTTL,
		},
		Log: LogConfig{
			Level:  getEnv("TENANCY_LOG_LEVEL", "info"),
			Format: getEnv("TENANCY_LOG_FORMAT", "json"),
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Tenancy.Mode == tenant.ModeSchema {
		if !schemaPrefixPattern.MatchString(c.Tenancy.SchemaPrefix) {
			return fmt.Errorf("TENANCY_SCHEMA_PREFIX %q must match %s", c.Tenancy.SchemaPrefix, schemaPrefixPattern)
		}
		if strings.HasPrefix(c.Tenancy.SchemaPrefix, "pg_") {
			return fmt.Errorf("TENANCY_SCHEMA_PREFIX %q: the pg_ prefix is reserved", c.Tenancy.SchemaPrefix)
		}
		for _, id := range c.Tenancy.Tenants {
			if !tenant.ValidSchemaID(id) {
				return fmt.Errorf("TENANCY_TENANTS: %q cannot name a schema", id)
			}
		}
	}

	// DB SSL mode warning for remote databases.
	if c.Database.SSLMode == "disable" && !isLocalHost(c.Database.Host) {
		log.Warn().Msg("TENANCY_DB_SSLMODE=disable is insecure for remote databases; set to 'require' or 'verify-full'")
	}

	// Bounds checks.
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("TENANCY_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("TENANCY_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Database.TenantMaxConns < 1 || c.Database.TenantMaxConns > c.Database.MaxConns {
		return fmt.Errorf("TENANCY_DB_TENANT_MAX_CONNS must be 1-%d, got %d", c.Database.MaxConns, c.Database.TenantMaxConns)
	}
	if c.Database.ConnectRetries < 1 {
		return fmt.Errorf("TENANCY_DB_CONNECT_RETRIES must be >= 1, got %d", c.Database.ConnectRetries)
	}
	if c.Database.RetryInterval <= 0 {
		return fmt.Errorf("TENANCY_DB_RETRY_INTERVAL must be positive, got %s", c.Database.RetryInterval)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("TENANCY_REDIS_DB must be >= 0, got %d", c.Redis.DB)
	}
	if c.Redis.CacheTTL <= 0 {
		return fmt.Errorf("TENANCY_CACHE_TTL must be positive, got %s", c.Redis.CacheTTL)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("TENANCY_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether a Redis address is configured.
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func isLocalHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return strings.HasPrefix(host, "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
