package mqtt

import (
	"context"

	"github.com/kilianp07/relief/core/model"
)

// Publisher delivers notifications to field devices over MQTT.
type Publisher interface {
	// PublishNotification sends n on the topic derived from its type.
	PublishNotification(ctx context.Context, n model.Notification) error
}
