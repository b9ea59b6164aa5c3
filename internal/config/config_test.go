package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const baseYAML = `
app:
  env: production
  port: 8081
mongodb:
  uri: "mongodb://db:27017"
jwt:
  secret: "s3cret"
`

func TestLoadAppliesDefaultsAndDerivedDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.App.Port)
	assert.Equal(t, "konga", cfg.Mongo.Database)
	assert.Equal(t, "enrollees", cfg.Mongo.EnrolleeCollection)
	assert.Equal(t, "counters", cfg.Mongo.CounterCollection)
	assert.Equal(t, "public/pdfs", cfg.Report.OutputDir)
	assert.Equal(t, "/pdfs", cfg.Report.URLPrefix)
	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.RateLimit.EnrollPerMinute)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://override:27017")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://override:27017", cfg.Mongo.URI)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing mongo uri",
			yaml: "app:\n  port: 1\njwt:\n  secret: x\n",
		},
		{
			name: "missing jwt secret",
			yaml: "app:\n  port: 1\nmongodb:\n  uri: mongodb://x\n",
		},
		{
			name: "kafka without brokers",
			yaml: baseYAML + "kafka:\n  enabled: true\n",
		},
		{
			name: "admin email without password",
			yaml: baseYAML + "admin:\n  email: root@example.com\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
