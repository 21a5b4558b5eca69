package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars and restore after tests
	originalEnv := map[string]string{
		"ADSYNC_APP_NAME":                os.Getenv("ADSYNC_APP_NAME"),
		"ADSYNC_APP_ENV":                 os.Getenv("ADSYNC_APP_ENV"),
		"ADSYNC_APP_PORT":                os.Getenv("ADSYNC_APP_PORT"),
		"ADSYNC_DATABASE_HOST":           os.Getenv("ADSYNC_DATABASE_HOST"),
		"ADSYNC_DATABASE_PORT":           os.Getenv("ADSYNC_DATABASE_PORT"),
		"ADSYNC_DATABASE_USER":           os.Getenv("ADSYNC_DATABASE_USER"),
		"ADSYNC_DATABASE_PASSWORD":       os.Getenv("ADSYNC_DATABASE_PASSWORD"),
		"ADSYNC_DATABASE_DBNAME":         os.Getenv("ADSYNC_DATABASE_DBNAME"),
		"ADSYNC_DATABASE_SSLMODE":        os.Getenv("ADSYNC_DATABASE_SSLMODE"),
		"ADSYNC_DATABASE_MAX_OPEN_CONNS": os.Getenv("ADSYNC_DATABASE_MAX_OPEN_CONNS"),
		"ADSYNC_DATABASE_MAX_IDLE_CONNS": os.Getenv("ADSYNC_DATABASE_MAX_IDLE_CONNS"),
		"ADSYNC_SYNC_MAX_ATTEMPTS":       os.Getenv("ADSYNC_SYNC_MAX_ATTEMPTS"),
		"ADSYNC_BULK_MAX_ROWS":           os.Getenv("ADSYNC_BULK_MAX_ROWS"),
		"APP_ENV":                        os.Getenv("APP_ENV"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "adsync-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "adsync", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 3, cfg.Sync.MaxAttempts)
		assert.Equal(t, 10000, cfg.Bulk.MaxRows)
		assert.Equal(t, "stub", cfg.Storage.Provider)
		assert.Equal(t, "bulk-sheets", cfg.Storage.KeyPrefix)
	})

	t.Run("loads values from environment variables with ADSYNC prefix", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADSYNC_APP_NAME", "test-app")
		os.Setenv("ADSYNC_APP_ENV", "testing")
		os.Setenv("ADSYNC_APP_PORT", "9000")
		os.Setenv("ADSYNC_DATABASE_HOST", "testdb.local")
		os.Setenv("ADSYNC_DATABASE_PORT", "5433")
		os.Setenv("ADSYNC_DATABASE_USER", "testuser")
		os.Setenv("ADSYNC_DATABASE_PASSWORD", "testpass")
		os.Setenv("ADSYNC_DATABASE_DBNAME", "testdb")
		os.Setenv("ADSYNC_DATABASE_SSLMODE", "require")
		os.Setenv("ADSYNC_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("ADSYNC_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("ADSYNC_SYNC_MAX_ATTEMPTS", "5")
		os.Setenv("ADSYNC_BULK_MAX_ROWS", "500")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "testing", cfg.App.Env)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testuser", cfg.Database.User)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, "testdb", cfg.Database.DBName)
		assert.Equal(t, "require", cfg.Database.SSLMode)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5, cfg.Sync.MaxAttempts)
		assert.Equal(t, 500, cfg.Bulk.MaxRows)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADSYNC_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("ADSYNC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("zero MaxOpenConns uses default", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADSYNC_DATABASE_MAX_OPEN_CONNS", "0")

		cfg, err := Load()
		require.NoError(t, err)
		// 0 is treated as "not set", so default (25) is used
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		clearEnv()
		os.Setenv("ADSYNC_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	originalEnv := map[string]string{
		"ADSYNC_APP_ENV":             os.Getenv("ADSYNC_APP_ENV"),
		"ADSYNC_DATABASE_PASSWORD":   os.Getenv("ADSYNC_DATABASE_PASSWORD"),
		"ADSYNC_DATABASE_SSLMODE":    os.Getenv("ADSYNC_DATABASE_SSLMODE"),
		"ADSYNC_KARGO_API_KEY":       os.Getenv("ADSYNC_KARGO_API_KEY"),
		"ADSYNC_AMAZON_CLIENT_ID":    os.Getenv("ADSYNC_AMAZON_CLIENT_ID"),
		"ADSYNC_AMAZON_ACCESS_TOKEN": os.Getenv("ADSYNC_AMAZON_ACCESS_TOKEN"),
		"ADSYNC_AMAZON_PROFILE_ID":   os.Getenv("ADSYNC_AMAZON_PROFILE_ID"),
		"ADSYNC_STORAGE_PROVIDER":    os.Getenv("ADSYNC_STORAGE_PROVIDER"),
		"ADSYNC_STORAGE_BUCKET":      os.Getenv("ADSYNC_STORAGE_BUCKET"),
		"APP_ENV":                    os.Getenv("APP_ENV"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	clearEnv := func() {
		for k := range originalEnv {
			os.Unsetenv(k)
		}
	}

	setValidProductionBase := func() {
		os.Setenv("ADSYNC_APP_ENV", "production")
		os.Setenv("ADSYNC_DATABASE_PASSWORD", "secure-password")
		os.Setenv("ADSYNC_DATABASE_SSLMODE", "require")
		os.Setenv("ADSYNC_KARGO_API_KEY", "kargo-key")
		os.Setenv("ADSYNC_AMAZON_CLIENT_ID", "client")
		os.Setenv("ADSYNC_AMAZON_ACCESS_TOKEN", "token")
		os.Setenv("ADSYNC_AMAZON_PROFILE_ID", "profile")
		os.Setenv("ADSYNC_STORAGE_PROVIDER", "s3")
		os.Setenv("ADSYNC_STORAGE_BUCKET", "adsync-artifacts")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("ADSYNC_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("ADSYNC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires kargo credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("ADSYNC_KARGO_API_KEY")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kargo.api_key is required in production")
	})

	t.Run("requires amazon credentials in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Unsetenv("ADSYNC_AMAZON_ACCESS_TOKEN")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "amazon credentials")
	})

	t.Run("rejects stub storage in production", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()
		os.Setenv("ADSYNC_STORAGE_PROVIDER", "stub")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.provider cannot be 'stub' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv()
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost")
		assert.Contains(t, dsn, "5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		// URL-encoded password should be in the DSN
		assert.Contains(t, dsn, "pass%40word%23123")
	})

	t.Run("handles empty password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "",
			DBName:   "db",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.NotEmpty(t, dsn)
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache.local", Port: 6380}
	assert.Equal(t, "cache.local:6380", cfg.Addr())
}
