package config

import (
	"time"

	"github.com/spf13/viper"

	"stackwarden/internal/models"
)

/**
 * HTTP server configuration
 * @property {string} address - Listening address (e.g. ":9180")
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" or empty for stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Supervisor-wide defaults, applied to services that don't set their own
 * @property {time.Duration} startup_timeout - Per-service healthy deadline during layer start
 * @property {time.Duration} stop_grace - Grace before a stop escalates to force kill
 * @property {time.Duration} alert_window - Dedup window for identical alerts
 */
type SupervisorConfig struct {
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
	StopGrace      time.Duration `mapstructure:"stop_grace"`
	AlertWindow    time.Duration `mapstructure:"alert_window"`
}

type AppConfig struct {
	Server     ServerConfig         `mapstructure:"server"`
	Log        LogConfig            `mapstructure:"log"`
	Supervisor SupervisorConfig     `mapstructure:"supervisor"`
	Services   []models.ServiceSpec `mapstructure:"services"`
}

// Config is the process-wide configuration, populated by Load.
var Config AppConfig

/**
 * Load application configuration from a YAML file
 * @param {string} path - Explicit config file path; empty means ./stackwarden.yaml
 * @returns {(*AppConfig, error)} Loaded configuration or read/unmarshal error
 */
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("stackwarden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stackwarden")
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	Config = cfg
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":9180"
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Supervisor.StartupTimeout <= 0 {
		cfg.Supervisor.StartupTimeout = 2 * time.Minute
	}
	if cfg.Supervisor.StopGrace <= 0 {
		cfg.Supervisor.StopGrace = 10 * time.Second
	}
	if cfg.Supervisor.AlertWindow <= 0 {
		cfg.Supervisor.AlertWindow = 5 * time.Minute
	}
	for i := range cfg.Services {
		svc := &cfg.Services[i]
		if svc.Probe.ExpectStatus == 0 {
			svc.Probe.ExpectStatus = 200
		}
		if svc.Probe.Retries <= 0 {
			svc.Probe.Retries = 3
		}
		if svc.Restart.MaxRestartAttempts <= 0 {
			svc.Restart.MaxRestartAttempts = 3
		}
		if svc.Restart.Backoff.Initial <= 0 {
			svc.Restart.Backoff.Initial = time.Second
		}
		if svc.Restart.Backoff.Max <= 0 {
			svc.Restart.Backoff.Max = 30 * time.Second
		}
		if svc.Restart.Backoff.Multiplier <= 1 {
			svc.Restart.Backoff.Multiplier = 2
		}
		if svc.StartupTimeout <= 0 {
			svc.StartupTimeout = cfg.Supervisor.StartupTimeout
		}
		if svc.StopGrace <= 0 {
			svc.StopGrace = cfg.Supervisor.StopGrace
		}
	}
}
