package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, c.Advisor.Providers)
	assert.Equal(t, 8080, c.Server.Port)
	assert.False(t, c.Kafka.Enabled)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"no environment", func(c *Config) { c.Environment = "" }, "environment is required"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown providers", func(c *Config) { c.Advisor.Providers = "grpc" }, "advisor.providers must be"},
		{"http without url", func(c *Config) { c.Advisor.Providers = ProviderHTTP }, "analytics.service_url"},
		{"zero fallback price", func(c *Config) { c.Advisor.FallbackPrice = 0 }, "fallback_price"},
		{"zero initial cash", func(c *Config) { c.Advisor.DefaultInitialCash = 0 }, "default_initial_cash"},
		{"negative weight", func(c *Config) { c.Aggregation.SentimentWeight = -1 }, "non-negative"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }, "kafka.brokers"},
		{"finnhub without key", func(c *Config) { c.Finnhub.Enabled = true }, "finnhub.api_key"},
		{"finnhub without symbols", func(c *Config) {
			c.Finnhub.Enabled = true
			c.Finnhub.APIKey = "k"
		}, "finnhub.symbols"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLOverDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: staging
server:
  port: 9090
advisor:
  signal_timeout: 2s
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 2*time.Second, c.Advisor.SignalTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "moderate", c.Advisor.DefaultProfile, "unset keys keep defaults")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "server: ["))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeConfig(t, "server:\n  port: 0\n"))
	assert.ErrorContains(t, err, "validate config")
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ADVISOR_ENV", "production")
	t.Setenv("ADVISOR_PORT", "7070")
	t.Setenv("KAFKA_BROKERS", " a:1, ,b:2 ")
	t.Setenv("SYMBOLS", "AAPL,MSFT")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 7070, c.Server.Port)
	assert.Equal(t, []string{"a:1", "b:2"}, c.Kafka.Brokers)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Finnhub.Symbols)
}

func TestLoadWithEnvBadPort(t *testing.T) {
	t.Setenv("ADVISOR_PORT", "eighty")
	_, err := LoadWithEnv("")
	assert.ErrorContains(t, err, "ADVISOR_PORT")
}
