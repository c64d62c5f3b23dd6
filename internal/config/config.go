package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/heatboard/internal/errors"
	"codeberg.org/mutker/heatboard/internal/heatmap"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultInterval = 2
	DefaultLogLevel = "info"
	DefaultSource   = "stdin"
	DefaultOutput   = "json"

	envPrefix         = "HEATBOARD"
	configEnv         = envPrefix + "_CONFIG"
	defaultConfigName = "heatboard"
	defaultConfigDir  = "/etc"
)

type Config struct {
	Interval    int    `mapstructure:"interval"`
	History     int    `mapstructure:"history"`
	Mode        string `mapstructure:"mode"`
	LogScale    bool   `mapstructure:"log_scale"`
	Strict      bool   `mapstructure:"strict"`
	Source      string `mapstructure:"source"`
	SourcePath  string `mapstructure:"source_path"`
	Output      string `mapstructure:"output"`
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	RecordPath  string `mapstructure:"record_path"`
}

// Load reads configuration from the process arguments, environment and
// config file.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs is Load with explicit command line arguments. Precedence is
// flags, then HEATBOARD_* environment variables, then the config file, then
// defaults.
func LoadArgs(args []string) (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	setDefaults(v)

	fs := pflag.NewFlagSet("heatboard", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a TOML config file")
	fs.Int("interval", DefaultInterval, "Seconds between heat map updates")
	fs.Int("history", heatmap.DefaultHistory, "Observations retained per series")
	fs.String("mode", heatmap.DefaultMode.String(), "Scaling mode: local, group or global")
	fs.Bool("log-scale", heatmap.DefaultLogScale, "Compress values with ln(1+|x|) before scaling")
	fs.Bool("strict", false, "Fail updates on scaled values outside [-1, 1]")
	fs.String("source", DefaultSource, "Observation source: stdin, file, sqlite or nvml")
	fs.String("source-path", "", "Path for file and sqlite sources")
	fs.String("output", DefaultOutput, "View output: json, log or none")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning or error")
	fs.String("metrics-addr", "", "Address for the Prometheus endpoint, empty disables it")
	fs.String("record-path", "", "SQLite file to record accepted observations into, empty disables it")

	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	for _, name := range []string{
		"interval", "history", "mode", "log-scale", "strict", "source",
		"source-path", "output", "log-level", "metrics-addr", "record-path",
	} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, *configPath); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("history", heatmap.DefaultHistory)
	v.SetDefault("mode", heatmap.DefaultMode.String())
	v.SetDefault("log_scale", heatmap.DefaultLogScale)
	v.SetDefault("strict", false)
	v.SetDefault("source", DefaultSource)
	v.SetDefault("source_path", "")
	v.SetDefault("output", DefaultOutput)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("record_path", "")
}

func readConfigFile(v *viper.Viper, flagPath string) error {
	errFactory := errors.New()

	path := flagPath
	if path == "" {
		path = os.Getenv(configEnv)
	}

	v.SetConfigType("toml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(defaultConfigDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks every field and reports the first invalid one.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, ValidationError{
			Field: "interval", Value: c.Interval, Reason: "must be positive",
		})
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, ValidationError{
			Field: "log_level", Value: c.LogLevel, Reason: "must be debug, info, warning or error",
		})
	}

	if c.History < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: "history", Value: c.History, Reason: "must not be negative",
		})
	}

	if _, err := heatmap.ParseMode(c.Mode); err != nil {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: "mode", Value: c.Mode, Reason: "must be local, group or global",
		})
	}

	source := SourceKind(c.Source)
	if !source.IsValid() {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: "source", Value: c.Source, Reason: "must be stdin, file, sqlite or nvml",
		})
	}
	if source.NeedsPath() && c.SourcePath == "" {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: "source_path", Value: c.SourcePath, Reason: "required for " + c.Source + " source",
		})
	}

	if c.RecordPath != "" && source == SourceSQLite && c.RecordPath == c.SourcePath {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: "record_path", Value: c.RecordPath, Reason: "must differ from the sqlite source path",
		})
	}

	if !OutputKind(c.Output).IsValid() {
		return errFactory.WithData(errors.ErrInvalidConfig, ValidationError{
			Field: "output", Value: c.Output, Reason: "must be json, log or none",
		})
	}

	return nil
}

// HeatmapMode returns the validated scaling mode.
func (c *Config) HeatmapMode() heatmap.Mode {
	m, err := heatmap.ParseMode(c.Mode)
	if err != nil {
		return heatmap.DefaultMode
	}

	return m
}
