// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the base name of the configuration file without extension.
const FileName = "devrun"

// EnvPrefix is the prefix of environment variables overriding config keys.
const EnvPrefix = "devrun"

// Environment modes.
const (
	ModeVenv = "venv"
	ModePath = "path"
)

// Migration drivers.
const (
	DriverExec    = "exec"
	DriverBuiltin = "builtin"
)

// Config is the effective devrun configuration.
type Config struct {
	Language   string `mapstructure:"language" yaml:"language"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	ProjectDir string `mapstructure:"project_dir" yaml:"project_dir"`

	Env       EnvConfig             `mapstructure:"env" yaml:"env"`
	Server    ServerConfig          `mapstructure:"server" yaml:"server"`
	Exec      ExecConfig            `mapstructure:"exec" yaml:"exec"`
	Commands  map[string][][]string `mapstructure:"commands" yaml:"commands"`
	Migrate   MigrateConfig         `mapstructure:"migrate" yaml:"migrate"`
	Clean     CleanConfig           `mapstructure:"clean" yaml:"clean"`
	Telemetry TelemetryConfig       `mapstructure:"telemetry" yaml:"telemetry"`
}

// EnvConfig selects how tools are resolved.
type EnvConfig struct {
	Mode      string   `mapstructure:"mode" yaml:"mode"`
	Dir       string   `mapstructure:"dir" yaml:"dir"`
	Python    string   `mapstructure:"python" yaml:"python"`
	Template  string   `mapstructure:"template" yaml:"template"`
	File      string   `mapstructure:"file" yaml:"file"`
	HostTools []string `mapstructure:"host_tools" yaml:"host_tools"`
}

// ServerConfig configures the development server task.
type ServerConfig struct {
	App      string        `mapstructure:"app" yaml:"app"`
	Host     string        `mapstructure:"host" yaml:"host"`
	Port     int           `mapstructure:"port" yaml:"port"`
	Reload   bool          `mapstructure:"reload" yaml:"reload"`
	Command  []string      `mapstructure:"command" yaml:"command"`
	Watch    []string      `mapstructure:"watch" yaml:"watch"`
	WatchExt []string      `mapstructure:"watch_ext" yaml:"watch_ext"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Grace    time.Duration `mapstructure:"grace" yaml:"grace"`
}

// ExecConfig tunes how delegated processes are stopped on interrupt.
type ExecConfig struct {
	WaitDelay time.Duration `mapstructure:"wait_delay" yaml:"wait_delay"`
}

// MigrateConfig selects the migration driver.
type MigrateConfig struct {
	Driver  string `mapstructure:"driver" yaml:"driver"`
	Dir     string `mapstructure:"dir" yaml:"dir"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
	Dialect string `mapstructure:"dialect" yaml:"dialect"`
	Table   string `mapstructure:"table" yaml:"table"`
}

// CleanConfig lists the artifact patterns removed by the clean task.
type CleanConfig struct {
	Recursive []string `mapstructure:"recursive" yaml:"recursive"`
	Root      []string `mapstructure:"root" yaml:"root"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Env.Mode {
	case ModeVenv, ModePath:
	default:
		return fmt.Errorf("env.mode must be %q or %q, got %q", ModeVenv, ModePath, c.Env.Mode)
	}
	switch c.Migrate.Driver {
	case DriverExec, DriverBuiltin:
	default:
		return fmt.Errorf("migrate.driver must be %q or %q, got %q", DriverExec, DriverBuiltin, c.Migrate.Driver)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Env.Mode == ModeVenv && strings.TrimSpace(c.Env.Dir) == "" {
		return errors.New("env.dir must not be empty in venv mode")
	}
	return nil
}

// GetConfigPath returns the user (or system-wide) configuration file path.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Devrun")
		default:
			configDir = "/etc/devrun"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "devrun")
	}

	return filepath.Join(configDir, FileName+".yaml"), nil
}

// ProjectConfigPath returns the path of the project-local configuration file.
func ProjectConfigPath(projectDir string) string {
	return filepath.Join(projectDir, FileName+".yaml")
}

// LoadConfig merges defaults, config files, environment and flags into T.
//
// bindings maps flag names to config keys (e.g. "mode" -> "env.mode").
// When bindings is nil every flag is bound under its own name.
// searchPaths are consulted before the user and system directories.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string, bindings map[string]string, searchPaths ...string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")

	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	}

	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; devrun runs on defaults.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("error reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := bindFlags(v, cmd.Flags(), bindings); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("error decoding config: %w", err)
	}

	return c, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	if bindings == nil {
		return v.BindPFlags(flags)
	}
	for name, key := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

// WriteConfigFile marshals c as YAML to path, creating parent directories.
// An existing file is only replaced when overwrite is set.
func WriteConfigFile[T any](c *T, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, os.ErrExist)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	return os.WriteFile(path, data, 0o644)
}
