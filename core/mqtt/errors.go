package mqtt

import "errors"

var (
	// ErrPublish is returned when a notification could not be delivered after all retries.
	ErrPublish = errors.New("mqtt publish failed")
	// ErrNotConnected is returned when publishing before the broker session is up.
	ErrNotConnected = errors.New("mqtt client not connected")
)
