package cshp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/message"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport/pipe"
)

func transportControlFrame(raw []byte) transport.Frame {
	return transport.Frame{Tag: transport.TagControl, Payload: raw}
}

func TestCSHP_HappyPath(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	type result struct {
		version message.Version
		err     error
	}
	clientDone := make(chan result, 1)
	serverDone := make(chan result, 1)

	go func() {
		v, err := RunClient(ctx, client)
		clientDone <- result{v, err}
	}()
	go func() {
		v, err := RunServer(ctx, server)
		serverDone <- result{v, err}
	}()

	c := <-clientDone
	s := <-serverDone
	require.NoError(t, c.err)
	require.NoError(t, s.err)
	assert.Equal(t, message.Version{Major: 1, Minor: 0}, c.version)
	assert.Equal(t, c.version, s.version)
}

func TestCSHP_ClientAbortsOnFormatMismatch(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_, _ = server.Recv(ctx)
		raw, _ := message.EncodeProtocolHandshake(message.ProtocolHandshake{
			Type:    message.HandshakeSelect,
			Version: message.Version{Major: 1, Minor: 0},
			Formats: []message.Format{message.FormatJSONUTF16},
		})
		_ = server.Send(ctx, transportControlFrame(raw))
	}()

	_, err := RunClient(ctx, client)
	require.Error(t, err)
	ae, ok := shiperr.As(err)
	require.True(t, ok)
	assert.Equal(t, shiperr.CodeSemanticError, ae.Code)
}

func TestCSHP_ServerAbortsOnVersionMismatch(t *testing.T) {
	clientPeer, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		raw, _ := message.EncodeProtocolHandshake(message.ProtocolHandshake{
			Type:    message.HandshakeAnnounceMax,
			Version: message.Version{Major: 2, Minor: 0},
			Formats: []message.Format{message.FormatJSONUTF8},
		})
		_ = clientPeer.Send(ctx, transportControlFrame(raw))
	}()

	_, err := RunServer(ctx, server)
	assert.Error(t, err)
}

func TestCSHP_ClientAbortsOnPeerError(t *testing.T) {
	client, server := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	go func() {
		_, _ = server.Recv(ctx)
		raw, _ := message.EncodeProtocolHandshakeError(message.ProtocolHandshakeError{Error: 3})
		_ = server.Send(ctx, transportControlFrame(raw))
	}()

	_, err := RunClient(ctx, client)
	assert.Error(t, err)
}

func TestCSHP_ClientTimesOut(t *testing.T) {
	client, _ := pipe.New()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := RunClient(ctx, client)
	assert.Error(t, err)
}
