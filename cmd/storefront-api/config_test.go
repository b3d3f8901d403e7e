package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg, err := loadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 0.5, cfg.PriceIncrement)
	assert.Equal(t, 10, cfg.TopN)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEnv_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STOREFRONT_STORE=sqlite\nSTOREFRONT_STORE_TIMEOUT=750ms\nSTOREFRONT_TOP_N=3\n"), 0o644))
	t.Setenv("STOREFRONT_PRICE_INCREMENT", "1.25")
	// godotenv.Load never overrides variables that are already set.
	t.Setenv("STOREFRONT_TOP_N", "7")
	t.Cleanup(func() {
		os.Unsetenv("STOREFRONT_STORE")
		os.Unsetenv("STOREFRONT_STORE_TIMEOUT")
	})

	cfg, err := loadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 1.25, cfg.PriceIncrement)
	assert.Equal(t, 7, cfg.TopN)
}

func TestBindFlags_OverrideEnv(t *testing.T) {
	cfg, err := loadEnv("")
	require.NoError(t, err)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bindFlags(fs, &cfg)
	require.NoError(t, fs.Parse([]string{"-store=redis", "-redis_addr=localhost:6379", "-store_timeout=100ms", "-telemetry"}))
	assert.Equal(t, "redis", cfg.Store)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.StoreTimeout)
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestEnvFileArg(t *testing.T) {
	assert.Equal(t, ".env", envFileArg(nil, ".env"))
	assert.Equal(t, "a.env", envFileArg([]string{"-env_file", "a.env"}, ".env"))
	assert.Equal(t, "b.env", envFileArg([]string{"-store=redis", "--env_file=b.env"}, ".env"))
	assert.Equal(t, ".env", envFileArg([]string{"env_file=c.env"}, ".env"))
}

func TestNewLogger_Level(t *testing.T) {
	log := newLogger(envConfig{LogLevel: "debug"})
	assert.Equal(t, "debug", log.GetLevel().String())
	log = newLogger(envConfig{LogLevel: "loud"})
	assert.Equal(t, "info", log.GetLevel().String())
}
