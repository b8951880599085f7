package am

import "github.com/quarrydata/quarry/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.API.TimeoutSeconds <= 0 {
		return errors.Newf("api.timeout_seconds must be > 0, got %d", c.API.TimeoutSeconds)
	}

	// Page delay 0 is valid (tests disable pacing); negative is not
	if c.Engine.PageDelayMS < 0 {
		return errors.Newf("engine.page_delay_ms must be >= 0, got %d", c.Engine.PageDelayMS)
	}
	if c.Engine.CheckpointEvery <= 0 {
		return errors.Newf("engine.checkpoint_every must be > 0, got %d", c.Engine.CheckpointEvery)
	}
	if c.Engine.StuckAfterMinutes <= 0 {
		return errors.Newf("engine.stuck_after_minutes must be > 0, got %d", c.Engine.StuckAfterMinutes)
	}
	if c.Engine.MaxPages <= 0 {
		return errors.Newf("engine.max_pages must be > 0, got %d", c.Engine.MaxPages)
	}

	if c.Client.PollIntervalMS <= 0 {
		return errors.Newf("client.poll_interval_ms must be > 0, got %d", c.Client.PollIntervalMS)
	}
	if c.Client.MaxPolls <= 0 {
		return errors.Newf("client.max_polls must be > 0, got %d", c.Client.MaxPolls)
	}
	if c.Client.MaxConsecutiveErrors <= 0 {
		return errors.Newf("client.max_consecutive_errors must be > 0, got %d", c.Client.MaxConsecutiveErrors)
	}

	// Trigger retries 0 = no automatic retry, negative = invalid
	if c.Client.TriggerRetries < 0 {
		return errors.Newf("client.trigger_retries must be >= 0, got %d", c.Client.TriggerRetries)
	}

	return nil
}
