package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FANFLOW_GWA_WORKERS.
const EnvPrefix = "FANFLOW"

// Loader resolves a Config from its sources.
type Loader struct {
	v       *viper.Viper
	file    string
	envFile string
}

// Option configures a Loader.
type Option func(*Loader)

// WithFile reads configuration from path instead of searching for
// fanflow.yaml. The file must exist.
func WithFile(path string) Option {
	return func(l *Loader) { l.file = path }
}

// WithEnvFile loads path instead of ./.env. The file must exist.
func WithEnvFile(path string) Option {
	return func(l *Loader) { l.envFile = path }
}

// NewLoader creates a loader with every default registered.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{v: viper.New()}
	for _, opt := range opts {
		opt(l)
	}
	for k, val := range defaults() {
		l.v.SetDefault(k, val)
	}
	return l
}

// BindFlag makes flag override key when it is set on the command line.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("bind %s: flag not defined", key)
	}
	return l.v.BindPFlag(key, flag)
}

// BindFlags binds each flag in fs named in keys (flag name to config key).
func (l *Loader) BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		if err := l.BindFlag(key, fs.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// ConfigFileUsed returns the YAML file that was read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Load reads every source, decodes the result and validates it.
func (l *Loader) Load() (*Config, error) {
	if err := l.loadEnvFile(); err != nil {
		return nil, err
	}
	if err := l.readConfigFile(); err != nil {
		return nil, err
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadEnvFile exports variables from the .env file without overriding
// variables already set in the environment.
func (l *Loader) loadEnvFile() error {
	path := l.envFile
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (l *Loader) readConfigFile() error {
	if l.file != "" {
		l.v.SetConfigFile(l.file)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", l.file, err)
		}
		return nil
	}

	l.v.SetConfigName("fanflow")
	l.v.SetConfigType("yaml")
	l.v.AddConfigPath(".")
	l.v.AddConfigPath("$HOME/.config/fanflow")

	var notFound viper.ConfigFileNotFoundError
	if err := l.v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
