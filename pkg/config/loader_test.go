package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mfakit/pkg/config"
)

type issuerConfig struct {
	Issuer string `env:"MFAKIT_TEST_ISSUER" envDefault:"PointBridge"`
	Skew   uint   `env:"MFAKIT_TEST_SKEW" envDefault:"1"`
}

type requiredConfig struct {
	DSN string `env:"MFAKIT_TEST_REQUIRED_DSN,required"`
}

type priorityConfig struct {
	Priority string `env:"MFAKIT_TEST_PRIORITY"`
}

func TestLoad(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)

	t.Run("defaults", func(t *testing.T) {
		config.ResetCache()
		var cfg issuerConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "PointBridge", cfg.Issuer)
		assert.Equal(t, uint(1), cfg.Skew)
	})

	t.Run("environment values", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("MFAKIT_TEST_ISSUER", "Acme")
		t.Setenv("MFAKIT_TEST_SKEW", "0")

		var cfg issuerConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "Acme", cfg.Issuer)
		assert.Equal(t, uint(0), cfg.Skew)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("MFAKIT_TEST_ISSUER", "First")
		var first issuerConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("MFAKIT_TEST_ISSUER", "Second")
		var second issuerConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, "First", second.Issuer)

		var parsed issuerConfig
		require.NoError(t, config.Parse(&parsed))
		assert.Equal(t, "Second", parsed.Issuer)

		config.ResetCache()
		var reloaded issuerConfig
		require.NoError(t, config.Load(&reloaded))
		assert.Equal(t, "Second", reloaded.Issuer)
	})

	t.Run("required missing", func(t *testing.T) {
		config.ResetCache()
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)

		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[issuerConfig](nil), config.ErrNilPointer)
		assert.ErrorIs(t, config.Parse[issuerConfig](nil), config.ErrNilPointer)
	})
}

func TestLoadEnv(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)
	t.Cleanup(func() {
		os.Unsetenv("MFAKIT_TEST_ISSUER")
		os.Unsetenv("MFAKIT_TEST_SKEW")
		os.Unsetenv("MFAKIT_TEST_PRIORITY")
	})

	t.Setenv("MFAKIT_TEST_PRIORITY", "from_env")
	require.NoError(t, config.LoadEnv("testdata/.env.test"))

	var cfg issuerConfig
	require.NoError(t, config.Parse(&cfg))
	assert.Equal(t, "Point Bridge", cfg.Issuer)
	assert.Equal(t, uint(2), cfg.Skew)

	var prio priorityConfig
	require.NoError(t, config.Parse(&prio))
	assert.Equal(t, "from_env", prio.Priority, "process environment wins over files")

	err := config.LoadEnv("testdata/missing.env")
	assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
}
