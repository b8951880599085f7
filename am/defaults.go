package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "quarry.db")

	// External API defaults
	v.SetDefault("api.timeout_seconds", 120)
	v.SetDefault("api.block_private_ips", true)

	// Engine defaults
	v.SetDefault("engine.page_delay_ms", 500) // polite delay between external calls
	v.SetDefault("engine.checkpoint_every", 5)
	v.SetDefault("engine.stuck_after_minutes", 15)
	v.SetDefault("engine.max_pages", 1000)

	// Client polling defaults
	v.SetDefault("client.poll_interval_ms", 2000)
	v.SetDefault("client.max_polls", 120)
	v.SetDefault("client.max_consecutive_errors", 3)
	v.SetDefault("client.trigger_retries", 2)
	v.SetDefault("client.trigger_retry_delay_ms", 1000)
	v.SetDefault("client.stuck_poll_threshold", 45) // ~90s at the 2s interval
	v.SetDefault("client.stuck_started_seconds", 120)
	v.SetDefault("client.stuck_local_wait_seconds", 180)
}
