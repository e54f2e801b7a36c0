package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/tenancy/internal/tenant"
)

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "TENANCY_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "TENANCY_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "TENANCY_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
		{name: "preserves whitespace", key: "TENANCY_TEST_GETENV_WS", setVal: strPtr("  spaced  "), fallback: "x", want: "  spaced  "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "TENANCY_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "TENANCY_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "parses negative int", key: "TENANCY_TEST_INT_NEG", setVal: strPtr("-1"), fallback: 0, want: -1},
		{name: "returns fallback for empty string", key: "TENANCY_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "TENANCY_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
		{name: "errors on float", key: "TENANCY_TEST_INT_FLOAT", setVal: strPtr("3.14"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "TENANCY_TEST_DUR_UNSET", setVal: nil, fallback: 5 * time.Second, want: 5 * time.Second},
		{name: "parses minutes", key: "TENANCY_TEST_DUR_MIN", setVal: strPtr("15m"), fallback: 0, want: 15 * time.Minute},
		{name: "parses composite", key: "TENANCY_TEST_DUR_COMP", setVal: strPtr("1h30m"), fallback: 0, want: 90 * time.Minute},
		{name: "errors on invalid", key: "TENANCY_TEST_DUR_INV", setVal: strPtr("notaduration"), fallback: 0, wantErr: true},
		{name: "errors on bare number", key: "TENANCY_TEST_DUR_BARE", setVal: strPtr("30"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("TENANCY_TEST_LIST", " test1, ,test2,test3 ")
	assert.Equal(t, []string{"test1", "test2", "test3"}, getEnvList("TENANCY_TEST_LIST", nil))
	assert.Nil(t, getEnvList("TENANCY_TEST_LIST_UNSET", nil))
}

// ---------------------------------------------------------------------------
// Load() error cases
// ---------------------------------------------------------------------------

func TestLoad_InvalidEnvVars(t *testing.T) {
	tests := []struct {
		name   string
		envs   map[string]string
		errMsg string
	}{
		{name: "unknown mode", envs: map[string]string{"TENANCY_MODE": "database"}, errMsg: "TENANCY_MODE"},
		{name: "DB_PORT not a number", envs: map[string]string{"TENANCY_DB_PORT": "abc"}, errMsg: "TENANCY_DB_PORT"},
		{name: "DB_PORT zero", envs: map[string]string{"TENANCY_DB_PORT": "0"}, errMsg: "TENANCY_DB_PORT"},
		{name: "DB_PORT too high", envs: map[string]string{"TENANCY_DB_PORT": "65536"}, errMsg: "TENANCY_DB_PORT"},
		{name: "DB_MAX_CONNS zero", envs: map[string]string{"TENANCY_DB_MAX_CONNS": "0"}, errMsg: "TENANCY_DB_MAX_CONNS"},
		{name: "DB_TENANT_MAX_CONNS zero", envs: map[string]string{"TENANCY_DB_TENANT_MAX_CONNS": "0"}, errMsg: "TENANCY_DB_TENANT_MAX_CONNS"},
		{name: "DB_TENANT_MAX_CONNS above pool size", envs: map[string]string{"TENANCY_DB_MAX_CONNS": "3", "TENANCY_DB_TENANT_MAX_CONNS": "4"}, errMsg: "TENANCY_DB_TENANT_MAX_CONNS"},
		{name: "DB_CONNECT_RETRIES zero", envs: map[string]string{"TENANCY_DB_CONNECT_RETRIES": "0"}, errMsg: "TENANCY_DB_CONNECT_RETRIES"},
		{name: "DB_RETRY_INTERVAL invalid", envs: map[string]string{"TENANCY_DB_RETRY_INTERVAL": "soon"}, errMsg: "TENANCY_DB_RETRY_INTERVAL"},
		{name: "REDIS_DB not a number", envs: map[string]string{"TENANCY_REDIS_DB": "abc"}, errMsg: "TENANCY_REDIS_DB"},
		{name: "REDIS_DB negative", envs: map[string]string{"TENANCY_REDIS_DB": "-1"}, errMsg: "TENANCY_REDIS_DB"},
		{name: "CACHE_TTL zero", envs: map[string]string{"TENANCY_CACHE_TTL": "0s"}, errMsg: "TENANCY_CACHE_TTL"},
		{name: "LOG_FORMAT unknown", envs: map[string]string{"TENANCY_LOG_FORMAT": "xml"}, errMsg: "TENANCY_LOG_FORMAT"},
		{
			name:   "schema tenant with invalid name",
			envs:   map[string]string{"TENANCY_MODE": "schema", "TENANCY_TENANTS": "test1,Test-2"},
			errMsg: "TENANCY_TENANTS",
		},
		{
			name:   "schema prefix with quote",
			envs:   map[string]string{"TENANCY_MODE": "schema", "TENANCY_SCHEMA_PREFIX": `t"`},
			errMsg: "TENANCY_SCHEMA_PREFIX",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.envs {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.errMsg)
			assert.Contains(t, err.Error(), "config.Load")
		})
	}
}

// ---------------------------------------------------------------------------
// Load() happy paths
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Tenancy defaults.
	assert.Equal(t, tenant.ModePartition, cfg.Tenancy.Mode)
	assert.Empty(t, cfg.Tenancy.Tenants)
	assert.Equal(t, "tenant_", cfg.Tenancy.SchemaPrefix)

	// Database defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "tenancy", cfg.Database.User)
	assert.Empty(t, cfg.Database.Password)
	assert.Equal(t, "tenancy", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, 4, cfg.Database.TenantMaxConns)
	assert.Equal(t, 3, cfg.Database.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.Database.RetryInterval)

	// Redis defaults.
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)

	// Log defaults.
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_SchemaMode(t *testing.T) {
	t.Setenv("TENANCY_MODE", "Schema")
	t.Setenv("TENANCY_TENANTS", "test1, test2,test3")
	t.Setenv("TENANCY_SCHEMA_PREFIX", "t_")
	t.Setenv("TENANCY_REDIS_ADDR", "redis:6379")
	t.Setenv("TENANCY_REDIS_DB", "2")
	t.Setenv("TENANCY_CACHE_TTL", "30s")
	t.Setenv("TENANCY_LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, tenant.ModeSchema, cfg.Tenancy.Mode)
	assert.Equal(t, []tenant.ID{"test1", "test2", "test3"}, cfg.Tenancy.Tenants)
	assert.Equal(t, "t_", cfg.Tenancy.SchemaPrefix)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_PartitionModeAcceptsAnyTenantToken(t *testing.T) {
	t.Setenv("TENANCY_MODE", "partition")
	t.Setenv("TENANCY_TENANTS", "dbsystc,Dbsys-P")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []tenant.ID{"dbsystc", "Dbsys-P"}, cfg.Tenancy.Tenants)
}

// ---------------------------------------------------------------------------
// DSN() output format
// ---------------------------------------------------------------------------

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "default dev values",
			cfg: DatabaseConfig{
				Host: "localhost", Port: 5432, User: "tenancy",
				Password: "", DBName: "tenancy", SSLMode: "disable",
			},
			want: "host=localhost port=5432 user=tenancy password= dbname=tenancy sslmode=disable",
		},
		{
			name: "production values",
			cfg: DatabaseConfig{
				Host: "db.prod", Port: 5433, User: "admin",
				Password: "p@ss!", DBName: "tenancy_prod", SSLMode: "require",
			},
			want: "host=db.prod port=5433 user=admin password=p@ss! dbname=tenancy_prod sslmode=require",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.cfg.DSN())
		})
	}
}

func TestLoad_DSN_Integration(t *testing.T) {
	t.Setenv("TENANCY_DB_HOST", "myhost")
	t.Setenv("TENANCY_DB_PORT", "5433")
	t.Setenv("TENANCY_DB_USER", "myuser")
	t.Setenv("TENANCY_DB_PASSWORD", "mypass")
	t.Setenv("TENANCY_DB_NAME", "mydb")
	t.Setenv("TENANCY_DB_SSLMODE", "verify-full")

	cfg, err := Load()
	require.NoError(t, err)

	want := "host=myhost port=5433 user=myuser password=mypass dbname=mydb sslmode=verify-full"
	assert.Equal(t, want, cfg.Database.DSN())
}

// ---------------------------------------------------------------------------
// validate() direct tests
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	t.Parallel()

	// validBase returns a Config that passes validation.
	validBase := func() *Config {
		return &Config{
			Tenancy:  TenancyConfig{Mode: tenant.ModeSchema, Tenants: []tenant.ID{"test1"}, SchemaPrefix: "tenant_"},
			Database: DatabaseConfig{Host: "localhost", Port: 5432, MaxConns: 25, TenantMaxConns: 4, ConnectRetries: 1, RetryInterval: time.Second},
			Redis:    RedisConfig{CacheTTL: time.Minute},
			Log:      LogConfig{Format: "json"},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validBase().validate())
	})

	t.Run("empty schema prefix fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Tenancy.SchemaPrefix = ""
		assert.ErrorContains(t, c.validate(), "TENANCY_SCHEMA_PREFIX")
	})

	t.Run("reserved schema prefix fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Tenancy.SchemaPrefix = "pg_"
		assert.ErrorContains(t, c.validate(), "TENANCY_SCHEMA_PREFIX")
	})

	t.Run("invalid schema tenant ignored in partition mode", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Tenancy.Mode = tenant.ModePartition
		c.Tenancy.Tenants = []tenant.ID{"Not A Schema"}
		assert.NoError(t, c.validate())
	})

	t.Run("port 65535 passes", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.Port = 65535
		assert.NoError(t, c.validate())
	})

	t.Run("retry interval 0 fails", func(t *testing.T) {
		t.Parallel()
		c := validBase()
		c.Database.RetryInterval = 0
		assert.ErrorContains(t, c.validate(), "TENANCY_DB_RETRY_INTERVAL")
	})
}
