package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vnykmshr/fanflow/internal/config"
	"github.com/vnykmshr/fanflow/internal/logging"
	"github.com/vnykmshr/fanflow/internal/tracing"
	"github.com/vnykmshr/fanflow/pkg/metrics"
	"github.com/vnykmshr/fanflow/pkg/output"
)

type commonFlags struct {
	configFile *string
	envFile    *string
}

// commonKeys maps flags shared by every command to config keys.
var commonKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"metrics":       "metrics.enabled",
	"metrics-addr":  "metrics.addr",
	"trace":         "tracing.enabled",
	"otlp-endpoint": "tracing.otlp_endpoint",
}

// defaults supplies flag defaults so --help shows the built-in values.
func defaults() config.Config {
	return config.DefaultConfig()
}

func addCommonFlags(fs *pflag.FlagSet) commonFlags {
	d := defaults()
	c := commonFlags{
		configFile: fs.StringP("config", "c", "", "config file (default ./fanflow.yaml if present)"),
		envFile:    fs.String("env-file", "", "env file (default ./.env if present)"),
	}
	fs.String("log-level", d.Log.Level, "log level: debug, info, warn or error")
	fs.String("log-format", d.Log.Format, "log format: console or json")
	fs.Bool("metrics", d.Metrics.Enabled, "serve Prometheus metrics while running")
	fs.String("metrics-addr", d.Metrics.Addr, "metrics listen address")
	fs.Bool("trace", d.Tracing.Enabled, "export traces over OTLP/HTTP")
	fs.String("otlp-endpoint", d.Tracing.OTLPEndpoint, "OTLP/HTTP collector host:port")
	return c
}

// app holds the handles every command shares.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer
	console *output.Console
	flags   *pflag.FlagSet
	stdout  io.Writer

	closers []func()
}

func newApp(ctx context.Context, fs *pflag.FlagSet, common commonFlags, keys map[string]string, stdout io.Writer) (*app, error) {
	var opts []config.Option
	if *common.configFile != "" {
		opts = append(opts, config.WithFile(*common.configFile))
	}
	if *common.envFile != "" {
		opts = append(opts, config.WithEnvFile(*common.envFile))
	}

	loader := config.NewLoader(opts...)
	if err := loader.BindFlags(fs, commonKeys); err != nil {
		return nil, err
	}
	if err := loader.BindFlags(fs, keys); err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, flags: fs, stdout: stdout}
	a.closers = append(a.closers, func() { _ = logger.Sync() })
	if used := loader.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", zap.String("file", used))
	}

	tracer, shutdown, err := tracing.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.tracer = tracer
	a.closers = append(a.closers, func() { _ = tracing.Shutdown(shutdown, logger) })

	if cfg.Metrics.Enabled {
		a.serveMetrics(cfg.Metrics.Addr)
	}

	consoleCfg := output.DefaultConfig()
	consoleCfg.Metrics = a.metrics
	consoleCfg.OnError = func(err error) {
		logger.Warn("console write failed", zap.Error(err))
	}
	a.console = output.NewConsoleWithConfig(stdout, consoleCfg)
	return a, nil
}

// serveMetrics exposes a private registry on addr until the app closes.
func (a *app) serveMetrics(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.NewRegistry(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))

	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
