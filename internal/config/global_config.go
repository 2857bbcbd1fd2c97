package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sitevigil/sitevigil/internal/errorx"
	"github.com/sitevigil/sitevigil/internal/logger"
	"gopkg.in/yaml.v3"
)

// GlobalConfig contains all configuration sections for the application.
type GlobalConfig struct {
	LogConfig       logger.Config   `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	FetcherConfig   FetcherConfig   `json:"fetcher_config,omitempty" yaml:"fetcher_config,omitempty"`
	RenderedConfig  RenderedConfig  `json:"rendered_config,omitempty" yaml:"rendered_config,omitempty"`
	CheckerConfig   CheckerConfig   `json:"checker_config,omitempty" yaml:"checker_config,omitempty"`
	ExecutorConfig  ExecutorConfig  `json:"executor_config,omitempty" yaml:"executor_config,omitempty"`
	StorageConfig   StorageConfig   `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	NotifierConfig  NotifierConfig  `json:"notifier_config,omitempty" yaml:"notifier_config,omitempty"`
	SchedulerConfig SchedulerConfig `json:"scheduler_config,omitempty" yaml:"scheduler_config,omitempty"`
}

// NewDefaultGlobalConfig creates a GlobalConfig with default values.
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:       logger.NewDefaultConfig(),
		FetcherConfig:   NewDefaultFetcherConfig(),
		RenderedConfig:  NewDefaultRenderedConfig(),
		CheckerConfig:   NewDefaultCheckerConfig(),
		ExecutorConfig:  NewDefaultExecutorConfig(),
		StorageConfig:   NewDefaultStorageConfig(),
		NotifierConfig:  NewDefaultNotifierConfig(),
		SchedulerConfig: NewDefaultSchedulerConfig(),
	}
}

// LoadGlobalConfig loads configuration from the given file, layered over
// defaults. YAML is assumed for .yaml/.yml extensions, JSON otherwise. An
// empty path returns defaults.
func LoadGlobalConfig(path string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errorx.Wrapf(err, "failed to read config file '%s'", path)
	}

	ext := filepath.Ext(path)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errorx.Wrapf(err, "failed to unmarshal YAML from '%s'", path)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errorx.Wrapf(err, "failed to unmarshal JSON from '%s'", path)
		}
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
