package mqtt

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/relief/core/model"
	coremon "github.com/kilianp07/relief/core/monitoring"
	coremqtt "github.com/kilianp07/relief/core/mqtt"
)

func TestPublishErrorCaptured(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail")}}
	withMockClient(t, mc)
	mon := &coremon.Recorder{}

	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", Monitor: mon}, nil)
	require.NoError(t, err)
	cli.cfg.MaxRetries = 0
	err = cli.PublishNotification(context.Background(), model.Notification{ID: "n1", Type: model.NotifyZoneEvacuated})
	require.Error(t, err)
	require.Len(t, mon.Errors, 1)
	assert.ErrorIs(t, mon.Errors[0], coremqtt.ErrPublish)
	assert.Equal(t, "n1", mon.Tags[0]["notification_id"])
	assert.Equal(t, "mqtt", mon.Tags[0]["module"])
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	m.FailTypes[model.NotifyTeamAssigned] = true
	ctx := context.Background()
	require.NoError(t, m.PublishNotification(ctx, model.Notification{ID: "a", Type: model.NotifyCriticalRisk}))
	assert.Error(t, m.PublishNotification(ctx, model.Notification{ID: "b", Type: model.NotifyTeamAssigned}))
	assert.Len(t, m.Published(), 1)
}
