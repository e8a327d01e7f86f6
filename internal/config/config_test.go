package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"XXLASR_ENGINE_PATH",
	"XXLASR_ENGINE_STANDARD",
	"XXLASR_ENGINE_MAX_GAP",
	"XXLASR_ENGINE_IDLE_TIMEOUT",
	"XXLASR_ENGINE_EXEC_TIMEOUT",
	"XXLASR_SERVER_ADDR",
	"XXLASR_QUEUE_WORKERS",
	"FASTER_WHISPER_XXL_PATH",
	"FASTER_WHISPER_XXL_STANDARD",
	"FASTER_WHISPER_XXL_MAX_GAP",
	"MODEL_IDLE_TIMEOUT",
}

// clearConfigEnv blanks every variable Load consults; empty values are ignored.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range configEnv {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(WithConfigDir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "", cfg.Engine.Path)
	require.False(t, cfg.Engine.Standard)
	require.Equal(t, 3.0, cfg.Engine.MaxGap)
	require.Equal(t, time.Duration(0), cfg.Engine.IdleTimeout)
	require.Equal(t, time.Duration(0), cfg.Engine.ExecTimeout)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, int64(512), cfg.Server.MaxUploadMB)
	require.Equal(t, 1, cfg.Queue.Workers)
	require.Equal(t, "xxlasr_jobs", cfg.Queue.JobsQueue)
	require.Equal(t, "xxlasr_results", cfg.Queue.ResultsQueue)
	require.Empty(t, cfg.ConfigFile)
}

func TestLoadLegacyEnvironment(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FASTER_WHISPER_XXL_PATH", "/opt/fwxxl/faster-whisper-xxl")
	t.Setenv("FASTER_WHISPER_XXL_STANDARD", "True")
	t.Setenv("FASTER_WHISPER_XXL_MAX_GAP", "0.5")
	t.Setenv("MODEL_IDLE_TIMEOUT", "300")

	cfg, err := Load(WithConfigDir(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, "/opt/fwxxl/faster-whisper-xxl", cfg.Engine.Path)
	require.True(t, cfg.Engine.Standard)
	require.Equal(t, 0.5, cfg.Engine.MaxGap)
	require.Equal(t, 5*time.Minute, cfg.Engine.IdleTimeout)
}

func TestLoadPrefixedEnvironmentWins(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("FASTER_WHISPER_XXL_PATH", "/legacy/faster-whisper-xxl")
	t.Setenv("XXLASR_ENGINE_PATH", "/new/faster-whisper-xxl")
	t.Setenv("MODEL_IDLE_TIMEOUT", "300")
	t.Setenv("XXLASR_ENGINE_IDLE_TIMEOUT", "90s")
	t.Setenv("XXLASR_QUEUE_WORKERS", "4")

	cfg, err := Load(WithConfigDir(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, "/new/faster-whisper-xxl", cfg.Engine.Path)
	require.Equal(t, 90*time.Second, cfg.Engine.IdleTimeout)
	require.Equal(t, 4, cfg.Queue.Workers)
}

func TestLoadInvalidLegacyIdleTimeout(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MODEL_IDLE_TIMEOUT", "soon")

	_, err := Load(WithConfigDir(t.TempDir()))
	require.Error(t, err)
	require.Contains(t, err.Error(), "MODEL_IDLE_TIMEOUT")
}

func TestLoadYAMLFromConfigDir(t *testing.T) {
	clearConfigEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  path: /srv/faster-whisper-xxl
  standard: true
  max_gap: 1.5
  exec_timeout: 10m
server:
  addr: 127.0.0.1:8080
queue:
  workers: 2
`), 0o644))

	cfg, err := Load(WithConfigDir(dir))
	require.NoError(t, err)
	require.Equal(t, path, cfg.ConfigFile)
	require.Equal(t, "/srv/faster-whisper-xxl", cfg.Engine.Path)
	require.True(t, cfg.Engine.Standard)
	require.Equal(t, 1.5, cfg.Engine.MaxGap)
	require.Equal(t, 10*time.Minute, cfg.Engine.ExecTimeout)
	require.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	require.Equal(t, 2, cfg.Queue.Workers)
}

func TestLoadEnvironmentOverridesYAML(t *testing.T) {
	clearConfigEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: :7000\n"), 0o644))
	t.Setenv("XXLASR_SERVER_ADDR", ":7100")

	cfg, err := Load(WithConfigFile(path), WithConfigDir(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, ":7100", cfg.Server.Addr)
}

func TestLoadExplicitConfigFileMustExist(t *testing.T) {
	clearConfigEnv(t)

	_, err := Load(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "read config")
}

func TestLoadEnvFile(t *testing.T) {
	clearConfigEnv(t)
	// godotenv never overrides variables that are already present, even when
	// empty, so this one is removed for the duration of the test.
	require.NoError(t, os.Unsetenv("FASTER_WHISPER_XXL_MAX_GAP"))

	envFile := filepath.Join(t.TempDir(), "xxlasr.env")
	require.NoError(t, os.WriteFile(envFile, []byte("FASTER_WHISPER_XXL_MAX_GAP=2.25\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("FASTER_WHISPER_XXL_MAX_GAP") })

	cfg, err := Load(WithEnvFile(envFile), WithConfigDir(t.TempDir()))
	require.NoError(t, err)
	require.Equal(t, 2.25, cfg.Engine.MaxGap)
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearConfigEnv(t)

	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), "missing.env")))
	require.Error(t, err)
	require.Contains(t, err.Error(), "load env file")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{
		Engine: EngineConfig{MaxGap: 3},
		Server: ServerConfig{Addr: ":9000", MaxUploadMB: 10},
		Queue:  QueueConfig{Workers: 1, JobsQueue: "jobs", ResultsQueue: "results"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{name: "negative max gap", mutate: func(c *Config) { c.Engine.MaxGap = -1 }, errPart: "engine.max_gap"},
		{name: "negative idle timeout", mutate: func(c *Config) { c.Engine.IdleTimeout = -time.Second }, errPart: "engine.idle_timeout"},
		{name: "negative exec timeout", mutate: func(c *Config) { c.Engine.ExecTimeout = -time.Second }, errPart: "engine.exec_timeout"},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, errPart: "server.addr"},
		{name: "zero upload limit", mutate: func(c *Config) { c.Server.MaxUploadMB = 0 }, errPart: "server.max_upload_mb"},
		{name: "no workers", mutate: func(c *Config) { c.Queue.Workers = 0 }, errPart: "queue.workers"},
		{name: "no queue names", mutate: func(c *Config) { c.Queue.JobsQueue = "" }, errPart: "queue.jobs_queue"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errPart)
		})
	}
}
