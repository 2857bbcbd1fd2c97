package config

// FetcherConfig configures the static HTTP fetcher.
type FetcherConfig struct {
	TimeoutSeconds     int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
	MaxRedirects       int    `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty" validate:"omitempty,min=0"`
	MaxContentSize     int    `json:"max_content_size,omitempty" yaml:"max_content_size,omitempty" validate:"omitempty,min=1"`
	UserAgent          string `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// NewDefaultFetcherConfig creates default static fetcher configuration.
func NewDefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		TimeoutSeconds: 30,
		MaxRedirects:   10,
		MaxContentSize: 5 * 1024 * 1024,
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 sitevigil/1.0",
	}
}

// RenderedConfig configures the headless-browser fetcher used for sources in
// rendered fetch mode.
type RenderedConfig struct {
	Enabled                bool   `json:"enabled" yaml:"enabled"`
	ChromePath             string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	LoadTimeoutSeconds     int    `json:"load_timeout_seconds,omitempty" yaml:"load_timeout_seconds,omitempty" validate:"omitempty,min=1"`
	PostLoadDelaySeconds   int    `json:"post_load_delay_seconds,omitempty" yaml:"post_load_delay_seconds,omitempty" validate:"omitempty,min=0"`
	PostActionDelaySeconds int    `json:"post_action_delay_seconds,omitempty" yaml:"post_action_delay_seconds,omitempty" validate:"omitempty,min=0"`
	DisableImages          bool   `json:"disable_images" yaml:"disable_images"`
}

// NewDefaultRenderedConfig creates default rendered fetcher configuration.
func NewDefaultRenderedConfig() RenderedConfig {
	return RenderedConfig{
		LoadTimeoutSeconds:     30,
		PostLoadDelaySeconds:   2,
		PostActionDelaySeconds: 1,
		DisableImages:          true,
	}
}

// CheckerConfig configures the check orchestrator.
type CheckerConfig struct {
	RetryCount        int    `json:"retry_count,omitempty" yaml:"retry_count,omitempty" validate:"omitempty,min=1,max=10"`
	NetworkMode       string `json:"network_mode,omitempty" yaml:"network_mode,omitempty" validate:"omitempty,oneof=wifi_only wifi_and_data data_only"`
	SnapshotRetention int    `json:"snapshot_retention,omitempty" yaml:"snapshot_retention,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultCheckerConfig creates default checker configuration.
func NewDefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		RetryCount:        3,
		NetworkMode:       "wifi_and_data",
		SnapshotRetention: 10,
	}
}

// ExecutorConfig configures the check worker pool.
type ExecutorConfig struct {
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty" validate:"omitempty,min=1,max=15"`
	// MemoryLimitMB enables the memory guard when positive: the executor logs
	// and forces GC when process memory exceeds the limit.
	MemoryLimitMB int `json:"memory_limit_mb,omitempty" yaml:"memory_limit_mb,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultExecutorConfig creates default executor configuration.
func NewDefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxWorkers: 3,
	}
}

// StorageConfig configures database and snapshot storage locations.
type StorageConfig struct {
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration.
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir: "data",
	}
}

// NotifierConfig configures change notifications.
type NotifierConfig struct {
	Method     string `json:"method,omitempty" yaml:"method,omitempty" validate:"omitempty,oneof=log webhook"`
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty" validate:"omitempty,url"`
}

// NewDefaultNotifierConfig creates default notifier configuration.
func NewDefaultNotifierConfig() NotifierConfig {
	return NotifierConfig{
		Method: "log",
	}
}

// SchedulerConfig configures the trigger scheduler loop.
type SchedulerConfig struct {
	// IdleWakeSeconds bounds how long the scheduler sleeps when no source
	// resolves a next trigger, so newly enabled sources are picked up.
	IdleWakeSeconds int `json:"idle_wake_seconds,omitempty" yaml:"idle_wake_seconds,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration.
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		IdleWakeSeconds: 60,
	}
}
