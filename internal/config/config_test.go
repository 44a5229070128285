package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/fanflow/pkg/agent"
	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/payroll"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.GWA.Workers, cfg.GWA.Workers)
	assert.Equal(t, "ceil", cfg.GWA.Strategy)
	assert.Equal(t, 4, cfg.Payroll.MaxConcurrent)
	assert.Equal(t, "both", cfg.Agents.Mode)
	assert.Equal(t, agent.DefaultDurations(), cfg.Agents.Durations)
	assert.Equal(t, "@every 30s", cfg.Schedule.Cron)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, agent.DefaultTasks(), cfg.Agents.TaskList())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, "fanflow.yaml", `
log:
  level: debug
gwa:
  workers: 3
  strategy: even
  grades: [85, 90, 78, 92]
payroll:
  max_concurrent: 2
  employees:
    - id: Alice
      base: 25000
    - id: Bob
      base: 32000
agents:
  mode: concurrent
  speed: 10
  durations:
    analyze: 500ms
  tasks:
    - prompt: Bump version
      files: [VERSION]
      message: Bump to 1.2.0
      remote: origin
      branch: release/1.2.0
      title: Release 1.2.0
      description: Version bump
`)
	l := NewLoader(WithFile(path))
	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, path, l.ConfigFileUsed())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 3, cfg.GWA.Workers)
	assert.Equal(t, "even", cfg.GWA.Strategy)
	assert.Equal(t, []float64{85, 90, 78, 92}, cfg.GWA.Grades)
	assert.Equal(t, []payroll.Record{{ID: "Alice", Base: 25000}, {ID: "Bob", Base: 32000}}, cfg.Payroll.Employees)

	assert.Equal(t, 500*time.Millisecond, cfg.Agents.Durations.Analyze)
	assert.Equal(t, 3*time.Second, cfg.Agents.Durations.Stage, "unset keys keep their defaults")
	assert.Equal(t, 50*time.Millisecond, cfg.Agents.StepDurations().Analyze)

	tasks := cfg.Agents.TaskList()
	require.Len(t, tasks, 1)
	assert.Equal(t, []string{"VERSION"}, tasks[0].Files)
	assert.Equal(t, "release/1.2.0", tasks[0].Branch)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(WithFile(filepath.Join(t.TempDir(), "absent.yaml"))).Load()
	assert.Error(t, err)

	_, err = NewLoader(WithEnvFile(filepath.Join(t.TempDir(), "absent.env"))).Load()
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "fanflow.yaml", "gwa:\n  workers: 3\n")
	t.Setenv("FANFLOW_GWA_WORKERS", "6")
	t.Setenv("FANFLOW_AGENTS_MODE", "sequential")

	cfg, err := NewLoader(WithFile(path)).Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.GWA.Workers)
	assert.Equal(t, "sequential", cfg.Agents.Mode)
}

func TestEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "FANFLOW_PAYROLL_MAX_CONCURRENT=9\nFANFLOW_LOG_FORMAT=json\n")
	t.Cleanup(func() {
		os.Unsetenv("FANFLOW_PAYROLL_MAX_CONCURRENT")
		os.Unsetenv("FANFLOW_LOG_FORMAT")
	})

	cfg, err := NewLoader(WithEnvFile(path)).Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Payroll.MaxConcurrent)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("FANFLOW_GWA_WORKERS", "6")

	fs := pflag.NewFlagSet("gwa", pflag.ContinueOnError)
	fs.Int("workers", 2, "")
	fs.String("strategy", "ceil", "")
	require.NoError(t, fs.Parse([]string{"--workers=8"}))

	l := NewLoader()
	require.NoError(t, l.BindFlags(fs, map[string]string{
		"workers":  "gwa.workers",
		"strategy": "gwa.strategy",
	}))
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.GWA.Workers)
	assert.Equal(t, "ceil", cfg.GWA.Strategy)

	assert.Error(t, l.BindFlag("gwa.grades", fs.Lookup("grades")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"workers", func(c *Config) { c.GWA.Workers = 0 }},
		{"strategy", func(c *Config) { c.GWA.Strategy = "random" }},
		{"max concurrent", func(c *Config) { c.Payroll.MaxConcurrent = -1 }},
		{"duplicate employee", func(c *Config) {
			c.Payroll.Employees = []payroll.Record{{ID: "a", Base: 1}, {ID: "a", Base: 2}}
		}},
		{"agent mode", func(c *Config) { c.Agents.Mode = "threads" }},
		{"speed", func(c *Config) { c.Agents.Speed = 0 }},
		{"task", func(c *Config) { c.Agents.Tasks = []agent.TaskSpec{{Prompt: "x"}} }},
		{"runs", func(c *Config) { c.Schedule.Runs = -1 }},
		{"cron", func(c *Config) { c.Schedule.Cron = "every tuesday" }},
		{"sample ratio", func(c *Config) {
			c.Tracing.Enabled = true
			c.Tracing.SampleRatio = 2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ffErrors.ErrInvalidArgument)
		})
	}

	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestParseAgentModes(t *testing.T) {
	modes, err := ParseAgentModes("Both")
	require.NoError(t, err)
	assert.Equal(t, []agent.Mode{agent.Sequential, agent.Concurrent}, modes)

	modes, err = ParseAgentModes("concurrent")
	require.NoError(t, err)
	assert.Equal(t, []agent.Mode{agent.Concurrent}, modes)

	_, err = ParseAgentModes("")
	assert.Error(t, err)
}
