// Package config loads xxlasr settings from a YAML file, an optional .env
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Engine EngineConfig `mapstructure:"engine"`
	Server ServerConfig `mapstructure:"server"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Log    LogConfig    `mapstructure:"log"`

	// ConfigFile is the YAML file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

type EngineConfig struct {
	Path        string        `mapstructure:"path"`
	Standard    bool          `mapstructure:"standard"`
	MaxGap      float64       `mapstructure:"max_gap"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
	ScratchDir  string        `mapstructure:"scratch_dir"`
}

type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

type QueueConfig struct {
	URL          string `mapstructure:"url"`
	Workers      int    `mapstructure:"workers"`
	JobsQueue    string `mapstructure:"jobs_queue"`
	ResultsQueue string `mapstructure:"results_queue"`
}

type LogConfig struct {
	Verbose bool   `mapstructure:"verbose"`
	JSON    bool   `mapstructure:"json"`
	Level   string `mapstructure:"level"`
}

func (c Config) Validate() error {
	var errs []error

	if c.Engine.MaxGap < 0 {
		errs = append(errs, fmt.Errorf("engine.max_gap must not be negative (got %v)", c.Engine.MaxGap))
	}
	if c.Engine.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.idle_timeout must not be negative (got %s)", c.Engine.IdleTimeout))
	}
	if c.Engine.ExecTimeout < 0 {
		errs = append(errs, fmt.Errorf("engine.exec_timeout must not be negative (got %s)", c.Engine.ExecTimeout))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive (got %d)", c.Server.MaxUploadMB))
	}
	if c.Queue.Workers < 1 {
		errs = append(errs, fmt.Errorf("queue.workers must be at least 1 (got %d)", c.Queue.Workers))
	}
	if c.Queue.JobsQueue == "" || c.Queue.ResultsQueue == "" {
		errs = append(errs, errors.New("queue.jobs_queue and queue.results_queue are required"))
	}

	return errors.Join(errs...)
}
