// Package connection drives one SHIP connection end to end: CMI, then CSH,
// then CSHP, then PIN, then the data channel, in that fixed order. It is the
// only place that knows the full layer sequence; each layer package knows
// nothing about its neighbours.
package connection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/flexiblepower/shipproto-go/internal/metrics"
	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/cmi"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/csh"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/cshp"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/data"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/pin"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
	"github.com/flexiblepower/shipproto-go/pkg/ship/trust"
)

// RunClient drives the client side of the handshake over tr, an already
// connected transport, and returns a ready-to-use data channel on success.
func RunClient(ctx context.Context, tr transport.Transport, trustMgr *trust.Manager, remoteSKI string, protocolID int) (*data.Channel, error) {
	return run(ctx, tr, trustMgr, remoteSKI, protocolID, true)
}

// RunServer drives the server side of the handshake over tr and returns a
// ready-to-use data channel on success.
func RunServer(ctx context.Context, tr transport.Transport, trustMgr *trust.Manager, remoteSKI string, protocolID int) (*data.Channel, error) {
	return run(ctx, tr, trustMgr, remoteSKI, protocolID, false)
}

func run(ctx context.Context, tr transport.Transport, trustMgr *trust.Manager, remoteSKI string, protocolID int, isClient bool) (*data.Channel, error) {
	connID := uuid.NewString()
	log := logger.GetDefaultLogger().WithFields(
		logger.String("connection_id", connID),
		logger.String("remote_ski", remoteSKI),
		logger.Bool("is_client", isClient),
	)

	start := time.Now()
	log.Info("starting SHIP handshake")

	if err := runLayer(ctx, tr, log, "cmi", func() error {
		if isClient {
			return cmi.RunClient(ctx, tr)
		}
		return cmi.RunServer(ctx, tr)
	}); err != nil {
		metrics.ObserveHandshake(time.Since(start), false)
		return nil, err
	}

	if err := runLayer(ctx, tr, log, "csh", func() error {
		return csh.Run(ctx, tr, trustMgr, remoteSKI)
	}); err != nil {
		metrics.ObserveHandshake(time.Since(start), false)
		return nil, err
	}

	if err := runLayer(ctx, tr, log, "cshp", func() error {
		var err error
		if isClient {
			_, err = cshp.RunClient(ctx, tr)
		} else {
			_, err = cshp.RunServer(ctx, tr)
		}
		return err
	}); err != nil {
		metrics.ObserveHandshake(time.Since(start), false)
		return nil, err
	}

	if err := runLayer(ctx, tr, log, "pin", func() error {
		return pin.Run(ctx, tr)
	}); err != nil {
		metrics.ObserveHandshake(time.Since(start), false)
		return nil, err
	}

	metrics.ObserveHandshake(time.Since(start), true)
	log.Info("SHIP handshake complete", logger.Duration("elapsed", time.Since(start)))
	return data.New(tr, protocolID), nil
}

// runLayer executes one layer and, on abort, closes the transport and
// records the failure before propagating the error.
func runLayer(ctx context.Context, tr transport.Transport, log logger.Logger, layer string, step func() error) error {
	if err := step(); err != nil {
		ae, _ := shiperr.As(err)
		code := shiperr.CodeNone
		reason := err.Error()
		if ae != nil {
			code = ae.Code
			reason = ae.Reason
		}
		log.Error("handshake layer aborted",
			logger.String("layer", layer),
			logger.Int("code", code),
			logger.String("reason", reason),
		)
		metrics.IncAbort(layer, code)
		_ = tr.Close(transport.CloseNormal, "handshake aborted: "+layer)
		return err
	}
	return nil
}
