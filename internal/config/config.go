package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvConfigPath names the variable holding the optional config file path.
// The entrypoint binary takes no flags, so this is its only way in.
const EnvConfigPath = "ENTRYPOINT_CONFIG"

// Migration drivers.
const (
	DriverCommand = "command"
	DriverGoose   = "goose"
)

// Config is the root configuration for the entrypoint.
type Config struct {
	Log           LogConfig     `mapstructure:"log" yaml:"log"`
	EnvFile       string        `mapstructure:"env_file" yaml:"env_file"`
	WorkDir       string        `mapstructure:"workdir" yaml:"workdir"`
	Migrate       MigrateConfig `mapstructure:"migrate" yaml:"migrate"`
	CollectStatic StepConfig    `mapstructure:"collectstatic" yaml:"collectstatic"`
	Report        ReportConfig  `mapstructure:"report" yaml:"report"`
	Tracing       TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// StepConfig describes one external setup command.
type StepConfig struct {
	Enabled bool     `mapstructure:"enabled" yaml:"enabled"`
	Command []string `mapstructure:"command" yaml:"command"`
}

type MigrateConfig struct {
	StepConfig `mapstructure:",squash" yaml:",inline"`
	Driver     string      `mapstructure:"driver" yaml:"driver"`
	Goose      GooseConfig `mapstructure:"goose" yaml:"goose"`
}

type GooseConfig struct {
	Dialect string `mapstructure:"dialect" yaml:"dialect"`
	DSN     string `mapstructure:"dsn" yaml:"-"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	Table   string `mapstructure:"table" yaml:"table"`
}

type ReportConfig struct {
	Path            string `mapstructure:"path" yaml:"path"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile"`
}

type TracingConfig struct {
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the ENTRYPOINT_ prefix (e.g. ENTRYPOINT_LOG_LEVEL).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ENTRYPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Commands from the environment are whitespace separated, which the
	// default comma decode hook would get wrong.
	cfg.Migrate.Command = v.GetStringSlice("migrate.command")
	cfg.CollectStatic.Command = v.GetStringSlice("collectstatic.command")

	if cfg.Migrate.Goose.DSN == "" {
		cfg.Migrate.Goose.DSN = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads config using the path in ENTRYPOINT_CONFIG, if any.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv(EnvConfigPath))
}

// Validate rejects values no step could make sense of. It does not look at
// the commands themselves: a broken setup command fails at run time and is
// discarded like any other setup failure.
func (c *Config) Validate() error {
	switch c.Migrate.Driver {
	case DriverCommand, DriverGoose:
	default:
		return fmt.Errorf("migrate.driver: unknown driver %q (want %s or %s)", c.Migrate.Driver, DriverCommand, DriverGoose)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format)
	}

	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set keep their value. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("env_file", "")
	v.SetDefault("workdir", "")

	v.SetDefault("migrate.enabled", true)
	v.SetDefault("migrate.driver", DriverCommand)
	v.SetDefault("migrate.command", []string{"python", "manage.py", "migrate", "--noinput"})
	v.SetDefault("migrate.goose.dialect", "postgres")
	v.SetDefault("migrate.goose.dsn", "")
	v.SetDefault("migrate.goose.dir", "migrations")
	v.SetDefault("migrate.goose.table", "goose_db_version")

	v.SetDefault("collectstatic.enabled", true)
	v.SetDefault("collectstatic.command", []string{"python", "manage.py", "collectstatic", "--noinput"})

	v.SetDefault("report.path", "")
	v.SetDefault("report.metrics_textfile", "")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "entrypoint")
	v.SetDefault("tracing.environment", "production")
}
