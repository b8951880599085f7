package client

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/errors"
)

func fastTrigger(api API) *Trigger {
	return NewTrigger(api, TriggerConfig{Retries: 2, Delay: time.Millisecond}, nil)
}

func TestTriggerSucceedsFirstAttempt(t *testing.T) {
	api := &fakeAPI{triggerID: "EXE_1"}

	id, err := fastTrigger(api).Run(context.Background(), "ds_1", "user")
	require.NoError(t, err)
	assert.Equal(t, "EXE_1", id)
	assert.Equal(t, 1, api.triggers)
}

// Transient failures are retried up to the bound with a fixed delay.
func TestTriggerRetriesTransientFailures(t *testing.T) {
	api := &fakeAPI{
		triggerID: "EXE_1",
		triggerErrs: []error{
			errors.New("transient"),
			errors.New("transient"),
			nil,
		},
	}

	id, err := fastTrigger(api).Run(context.Background(), "ds_1", "user")
	require.NoError(t, err)
	assert.Equal(t, "EXE_1", id)
	assert.Equal(t, 3, api.triggers)
}

func TestTriggerExhaustsRetries(t *testing.T) {
	api := &fakeAPI{triggerErrs: []error{
		errors.New("down"),
		errors.New("down"),
		errors.New("down"),
	}}

	_, err := fastTrigger(api).Run(context.Background(), "ds_1", "user")
	require.Error(t, err)
	assert.Equal(t, 3, api.triggers)
}

// Resolution errors are permanent; retrying cannot help.
func TestTriggerDoesNotRetryResolutionErrors(t *testing.T) {
	api := &fakeAPI{triggerErrs: []error{
		errors.Wrap(errors.ErrNotFound, "dataset missing"),
	}}

	_, err := fastTrigger(api).Run(context.Background(), "ds_1", "user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, 1, api.triggers)
}
