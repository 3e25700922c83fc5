// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// RunnerMode selects the ScriptRunner implementation wired at startup.
const (
	RunnerModeSimulated = "simulated"
	RunnerModeProcess   = "process"
	RunnerModeRemote    = "remote"
)

// Config holds all configuration for the service.
// The mapstructure tags are used by Viper to unmarshal the data.
type Config struct {
	HttpListenAddr    string        `mapstructure:"http_listen_addr"`
	EtcdEndpoints     []string      `mapstructure:"etcd_endpoints"`
	EtcdTimeout       time.Duration `mapstructure:"etcd_timeout"`
	RunTimeout        time.Duration `mapstructure:"run_timeout"`
	DefaultWindowDays int           `mapstructure:"default_window_days"`
	RunnerMode        string        `mapstructure:"runner_mode"`
	RunnerAgentURL    string        `mapstructure:"runner_agent_url"`
	ScriptDir         string        `mapstructure:"script_dir"`
	ScriptCommand     string        `mapstructure:"script_command"`
	ReconcileSchedule string        `mapstructure:"reconcile_schedule"`
	ReconcileGrace    time.Duration `mapstructure:"reconcile_grace"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("http_listen_addr", ":8080")
	viper.SetDefault("etcd_timeout", "5s")
	viper.SetDefault("run_timeout", "30s")
	viper.SetDefault("default_window_days", 7)
	viper.SetDefault("runner_mode", RunnerModeSimulated)
	// Empty defaults keep these keys visible to AutomaticEnv during Unmarshal.
	viper.SetDefault("runner_agent_url", "")
	viper.SetDefault("etcd_endpoints", []string{})
	viper.SetDefault("script_dir", "./scripts")
	viper.SetDefault("script_command", "python3")
	viper.SetDefault("reconcile_schedule", "@every 1m")
	viper.SetDefault("reconcile_grace", "10m")

	// Set config file details
	viper.SetConfigName("config")    // name of config file (without extension)
	viper.SetConfigType("yaml")      // or "json", "toml"
	viper.AddConfigPath("./configs") // path to look for the config file in
	viper.AddConfigPath(".")         // optionally look for config in the working directory

	// Read environment variables
	viper.AutomaticEnv()

	// Read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; rely on defaults and env vars.
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.RunnerMode {
	case RunnerModeSimulated, RunnerModeProcess:
	case RunnerModeRemote:
		if c.RunnerAgentURL == "" {
			return fmt.Errorf("runner_agent_url is required when runner_mode is %q", RunnerModeRemote)
		}
	default:
		return fmt.Errorf("invalid runner_mode: %q", c.RunnerMode)
	}
	if c.DefaultWindowDays <= 0 {
		return fmt.Errorf("default_window_days must be positive, got %d", c.DefaultWindowDays)
	}
	if c.ReconcileGrace < c.RunTimeout {
		// A sweep inside the run timeout would fail executions that are
		// still legitimately in flight.
		return fmt.Errorf("reconcile_grace (%s) must not be shorter than run_timeout (%s)", c.ReconcileGrace, c.RunTimeout)
	}
	return nil
}
