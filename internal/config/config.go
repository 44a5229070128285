// Package config loads fanflow's command configuration from defaults, an
// optional fanflow.yaml, an optional .env file, FANFLOW_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/vnykmshr/fanflow/internal/tracing"
	"github.com/vnykmshr/fanflow/pkg/agent"
	ffErrors "github.com/vnykmshr/fanflow/pkg/common/errors"
	"github.com/vnykmshr/fanflow/pkg/partition"
	"github.com/vnykmshr/fanflow/pkg/payroll"
	"github.com/vnykmshr/fanflow/pkg/scheduling/scheduler"
)

// Config is the complete command configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  tracing.Config `mapstructure:"tracing"`
	GWA      GWAConfig      `mapstructure:"gwa"`
	Payroll  PayrollConfig  `mapstructure:"payroll"`
	Agents   AgentsConfig   `mapstructure:"agents"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the Prometheus endpoint. Addr is only served
// while a command is running.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type GWAConfig struct {
	Workers  int       `mapstructure:"workers"`
	Strategy string    `mapstructure:"strategy"`
	Grades   []float64 `mapstructure:"grades"`
}

type PayrollConfig struct {
	// MaxConcurrent bounds record-level parallelism. Zero derives every
	// record at once.
	MaxConcurrent int              `mapstructure:"max_concurrent"`
	Employees     []payroll.Record `mapstructure:"employees"`
}

type AgentsConfig struct {
	// Mode is sequential, concurrent or both.
	Mode      string           `mapstructure:"mode"`
	Spinner   bool             `mapstructure:"spinner"`
	Speed     float64          `mapstructure:"speed"`
	Durations agent.Durations  `mapstructure:"durations"`
	Tasks     []agent.TaskSpec `mapstructure:"tasks"`
}

// StepDurations returns the configured durations divided by Speed.
func (c AgentsConfig) StepDurations() agent.Durations {
	return c.Durations.Scale(1 / c.Speed)
}

// TaskList returns the configured tasks, or the demo tasks when none are
// configured.
func (c AgentsConfig) TaskList() []agent.TaskSpec {
	if len(c.Tasks) == 0 {
		return agent.DefaultTasks()
	}
	return c.Tasks
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
	Runs int    `mapstructure:"runs"`
	Mode string `mapstructure:"mode"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Addr: ":9090"},
		Tracing: tracing.DefaultConfig("fanflow"),
		GWA:     GWAConfig{Workers: 2, Strategy: partition.StrategyCeil.String()},
		Payroll: PayrollConfig{MaxConcurrent: 4},
		Agents: AgentsConfig{
			Mode:      "both",
			Spinner:   true,
			Speed:     1,
			Durations: agent.DefaultDurations(),
		},
		Schedule: ScheduleConfig{Cron: "@every 30s", Runs: 3, Mode: agent.Concurrent.String()},
	}
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if c.GWA.Workers < 1 {
		return ffErrors.NewValidationError("config", "gwa.workers", c.GWA.Workers, "must be at least 1")
	}
	if _, err := partition.ParseStrategy(c.GWA.Strategy); err != nil {
		return err
	}
	if c.Payroll.MaxConcurrent < 0 {
		return ffErrors.NewValidationError("config", "payroll.max_concurrent", c.Payroll.MaxConcurrent, "cannot be negative")
	}
	if err := payroll.ValidateRecords(c.Payroll.Employees); err != nil {
		return err
	}
	if _, err := ParseAgentModes(c.Agents.Mode); err != nil {
		return err
	}
	if c.Agents.Speed <= 0 {
		return ffErrors.NewValidationError("config", "agents.speed", c.Agents.Speed, "must be positive")
	}
	for i, t := range c.Agents.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("agents.tasks[%d]: %w", i, err)
		}
	}
	if c.Schedule.Runs < 0 {
		return ffErrors.NewValidationError("config", "schedule.runs", c.Schedule.Runs, "cannot be negative")
	}
	if err := scheduler.ValidateCron(c.Schedule.Cron); err != nil {
		return err
	}
	if _, err := agent.ParseMode(c.Schedule.Mode); err != nil {
		return err
	}
	if c.Tracing.Enabled && (c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1) {
		return ffErrors.NewValidationError("config", "tracing.sample_ratio", c.Tracing.SampleRatio, "must be within [0, 1]")
	}
	return nil
}

// ParseAgentModes expands "both" into sequential then concurrent.
func ParseAgentModes(s string) ([]agent.Mode, error) {
	if strings.EqualFold(strings.TrimSpace(s), "both") {
		return []agent.Mode{agent.Sequential, agent.Concurrent}, nil
	}
	m, err := agent.ParseMode(s)
	if err != nil {
		return nil, err
	}
	return []agent.Mode{m}, nil
}

// defaults flattens DefaultConfig into viper keys.
func defaults() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"log.level":                     d.Log.Level,
		"log.format":                    d.Log.Format,
		"metrics.enabled":               d.Metrics.Enabled,
		"metrics.addr":                  d.Metrics.Addr,
		"tracing.enabled":               d.Tracing.Enabled,
		"tracing.service_name":          d.Tracing.ServiceName,
		"tracing.service_version":       d.Tracing.ServiceVersion,
		"tracing.environment":           d.Tracing.Environment,
		"tracing.otlp_endpoint":         d.Tracing.OTLPEndpoint,
		"tracing.insecure":              d.Tracing.Insecure,
		"tracing.sample_ratio":          d.Tracing.SampleRatio,
		"gwa.workers":                   d.GWA.Workers,
		"gwa.strategy":                  d.GWA.Strategy,
		"gwa.grades":                    []float64{},
		"payroll.max_concurrent":        d.Payroll.MaxConcurrent,
		"payroll.employees":             []payroll.Record{},
		"agents.mode":                   d.Agents.Mode,
		"agents.spinner":                d.Agents.Spinner,
		"agents.speed":                  d.Agents.Speed,
		"agents.durations.analyze":      d.Agents.Durations.Analyze,
		"agents.durations.stage":        d.Agents.Durations.Stage,
		"agents.durations.commit":       d.Agents.Durations.Commit,
		"agents.durations.push":         d.Agents.Durations.Push,
		"agents.durations.open_request": d.Agents.Durations.OpenRequest,
		"agents.tasks":                  []agent.TaskSpec{},
		"schedule.cron":                 d.Schedule.Cron,
		"schedule.runs":                 d.Schedule.Runs,
		"schedule.mode":                 d.Schedule.Mode,
	}
}
