// Package am holds the quarry core configuration ("I am").
package am

// Config represents the core quarry configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	API      APIConfig      `mapstructure:"api"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Client   ClientConfig   `mapstructure:"client"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// APIConfig configures outbound calls to external GraphQL APIs
type APIConfig struct {
	TimeoutSeconds  int  `mapstructure:"timeout_seconds"`   // Per-request HTTP timeout (default: 120)
	BlockPrivateIPs bool `mapstructure:"block_private_ips"` // SSRF guard on source URLs (default: true)
}

// EngineConfig configures server-side execution
type EngineConfig struct {
	// Delay between consecutive calls against the external API. Intentional
	// serialization to respect third-party rate limits.
	PageDelayMS int `mapstructure:"page_delay_ms"` // default: 500

	// CheckpointEvery is how many secondary fan-out calls run between
	// checkpoint persists during a dependent execution.
	CheckpointEvery int `mapstructure:"checkpoint_every"` // default: 5

	// StuckAfterMinutes is the server-side threshold beyond which a
	// non-terminal execution is classified stuck.
	StuckAfterMinutes int `mapstructure:"stuck_after_minutes"` // default: 15

	// MaxPages bounds a pagination walk so a misbehaving API cannot loop
	// the fetcher forever.
	MaxPages int `mapstructure:"max_pages"` // default: 1000
}

// ClientConfig configures the retrieval/polling orchestrator
type ClientConfig struct {
	PollIntervalMS       int `mapstructure:"poll_interval_ms"`       // default: 2000
	MaxPolls             int `mapstructure:"max_polls"`              // default: 120
	MaxConsecutiveErrors int `mapstructure:"max_consecutive_errors"` // default: 3
	TriggerRetries       int `mapstructure:"trigger_retries"`        // automatic re-attempts (default: 2)
	TriggerRetryDelayMS  int `mapstructure:"trigger_retry_delay_ms"` // default: 1000

	// Client-side stuck heuristics (see engine stuck detection for the
	// server-side counterpart).
	StuckPollThreshold    int `mapstructure:"stuck_poll_threshold"`     // polls before timers are consulted (default: 45)
	StuckStartedSeconds   int `mapstructure:"stuck_started_seconds"`    // against execution start time (default: 120)
	StuckLocalWaitSeconds int `mapstructure:"stuck_local_wait_seconds"` // against local polling start (default: 180)
}
