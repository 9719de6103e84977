package main

import (
	"context"

	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/data"
)

// serveDataChannel is the placeholder application behind the handshake: it
// echoes every message it receives back to the peer until the channel
// closes or ctx is cancelled. A real deployment would swap this for its own
// SHIP-carried payload handling.
func serveDataChannel(ctx context.Context, ch *data.Channel, remoteSKI string, log logger.Logger) {
	for {
		var msg interface{}
		if err := ch.Recv(ctx, &msg); err != nil {
			log.Info("data channel closed", logger.String("remote_ski", remoteSKI), logger.Error(err))
			return
		}
		if err := ch.Send(ctx, msg); err != nil {
			log.Warn("echo send failed", logger.String("remote_ski", remoteSKI), logger.Error(err))
			return
		}
	}
}
