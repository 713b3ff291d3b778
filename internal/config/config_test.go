package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, ":8001", cfg.HTTPAddr)
	require.Equal(t, BackendPostgres, cfg.StoreBackend)
	require.Empty(t, cfg.Brokers())
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_BACKEND=Memory\nKAFKA_BROKERS=a:9092, b:9092 ,\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("STORE_BACKEND")
		os.Unsetenv("KAFKA_BROKERS")
	})
	t.Setenv("HTTP_ADDR", ":9999")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, BackendMemory, cfg.StoreBackend)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
	require.Equal(t, ":9999", cfg.HTTPAddr)
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "redis")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}

func TestLoadProducer_Defaults(t *testing.T) {
	cfg, err := LoadProducer(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, TargetKafka, cfg.Target)
	require.Equal(t, 1, cfg.GenCount)
	require.Equal(t, "shopify-orders", cfg.KafkaWebhookTopic)
	require.Equal(t, []string{"localhost:9094"}, cfg.Brokers())
}

func TestLoadProducer_Overrides(t *testing.T) {
	t.Setenv("PRODUCER_TARGET", " HTTP ")
	t.Setenv("GEN_COUNT", "25")
	t.Setenv("GEN_DEMO", "true")

	cfg, err := LoadProducer(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, TargetHTTP, cfg.Target)
	require.Equal(t, 25, cfg.GenCount)
	require.True(t, cfg.GenDemo)
}

func TestLoadProducer_RejectsBadValues(t *testing.T) {
	for env, val := range map[string]string{
		"GEN_COUNT":       "lots",
		"GEN_INTERVAL_MS": "-5",
		"PRODUCER_TARGET": "smtp",
	} {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			_, err := LoadProducer(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			require.Contains(t, err.Error(), env)
		})
	}
}
