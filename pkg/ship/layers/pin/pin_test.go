package pin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexiblepower/shipproto-go/pkg/ship/message"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport/pipe"
)

func TestPIN_HappyPath(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- Run(ctx, client) }()
	go func() { errCh <- Run(ctx, server) }()

	require.NoError(t, <-errCh)
	require.NoError(t, <-errCh)
}

func TestPIN_AbortsWhenPeerRequiresPIN(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_, _ = server.Recv(ctx)
		raw, _ := message.EncodePinState(message.PinState{State: message.PinRequired})
		_ = server.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: raw})
	}()

	err := Run(ctx, client)
	assert.Error(t, err)
}

func TestPIN_AbortsOnPinInput(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_, _ = server.Recv(ctx)
		_ = server.Send(ctx, transport.Frame{
			Tag:     transport.TagControl,
			Payload: []byte(`{"connectionPinInput":[{"pin":"1234ABCD"}]}`),
		})
	}()

	err := Run(ctx, client)
	assert.Error(t, err)
}

func TestPIN_AbortsOnMalformedFrame(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_, _ = server.Recv(ctx)
		_ = server.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: []byte(`not json`)})
	}()

	err := Run(ctx, client)
	assert.Error(t, err)
}
