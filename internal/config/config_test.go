package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LEADBOARD_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EnvDevelopment, cfg.Env)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, TransportHTTP, cfg.Transport.Mode)
	require.Equal(t, "https://services.leadconnectorhq.com", cfg.CRM.BaseURL)
	require.Equal(t, 30*time.Second, cfg.CRM.Timeout)
	require.Len(t, cfg.Pipeline.Stages, 6)
	require.Equal(t, "Closed", cfg.Pipeline.Stages[5])
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: production
server:
  port: 9090
crm:
  base_url: https://crm.example.test
  timeout: 5s
  rate_limit: 2
pipeline:
  stages: [Inquiry, Qualified, Won]
`), 0o600))

	t.Setenv("LEADBOARD_CONFIG_PATH", path)
	t.Setenv("LEADBOARD_SERVER_PORT", "9191")
	t.Setenv("LEADBOARD_CRM_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, EnvProduction, cfg.Env)
	require.Equal(t, "error", cfg.Log.Level)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "https://crm.example.test", cfg.CRM.BaseURL)
	require.Equal(t, "tok", cfg.CRM.Token)
	require.Equal(t, 5*time.Second, cfg.CRM.Timeout)
	require.Equal(t, 2.0, cfg.CRM.RateLimit)
	require.Equal(t, []string{"Inquiry", "Qualified", "Won"}, cfg.Pipeline.Stages)
}

func TestLoad_ExplicitLogLevelWins(t *testing.T) {
	t.Setenv("LEADBOARD_CONFIG_PATH", "")
	t.Setenv("LEADBOARD_ENV", "staging")
	t.Setenv("LEADBOARD_LOG_LEVEL", "WARN")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("LEADBOARD_CONFIG_PATH", "")

	t.Setenv("LEADBOARD_SERVER_PORT", "eighty")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("LEADBOARD_SERVER_PORT", "")
	t.Setenv("LEADBOARD_ENV", "qa")
	_, err = Load()
	require.ErrorContains(t, err, `unknown env "qa"`)
}

func TestLoad_StagesFromEnv(t *testing.T) {
	t.Setenv("LEADBOARD_CONFIG_PATH", "")
	t.Setenv("LEADBOARD_PIPELINE_STAGES", "Open, Won")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"Open", "Won"}, cfg.Pipeline.Stages)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Stages = []string{"A", "B", "A"}
	require.ErrorContains(t, cfg.Validate(), `duplicate pipeline stage "A"`)

	cfg = Default()
	cfg.Pipeline.Stages = nil
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Auth.Enabled = true
	require.ErrorContains(t, cfg.Validate(), "without a token")

	cfg = Default()
	cfg.Transport.Mode = "grpc"
	require.Error(t, cfg.Validate())

	require.NoError(t, Default().Validate())
}

func TestDefaultLogLevel(t *testing.T) {
	require.Equal(t, "debug", DefaultLogLevel(EnvDevelopment))
	require.Equal(t, "info", DefaultLogLevel(EnvStaging))
	require.Equal(t, "error", DefaultLogLevel(EnvProduction))
}
