// Package cmi implements the connection mode initialisation layer: the
// two-byte sentinel exchange that opens every SHIP connection.
package cmi

import (
	"context"
	"time"

	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/timer"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
)

const layer = "cmi"

// Wait is the budget either role gives the peer to respond.
const Wait = 10 * time.Second

// sentinel is the literal two-octet frame 0x00 0x00: tag TagReserved,
// one payload octet of 0x00.
var sentinel = transport.Frame{Tag: transport.TagReserved, Payload: []byte{0x00}}

// RunClient sends the sentinel then waits for the peer's sentinel echo or
// the 10s deadline, whichever comes first.
func RunClient(ctx context.Context, tr transport.Transport) error {
	if err := send(ctx, tr); err != nil {
		return err
	}
	return waitForSentinel(ctx, tr, nil)
}

// RunServer waits for the peer's first frame, answers with its own
// sentinel, and only then checks that the peer's frame was a sentinel.
func RunServer(ctx context.Context, tr transport.Transport) error {
	return waitForSentinel(ctx, tr, func() error { return send(ctx, tr) })
}

func send(ctx context.Context, tr transport.Transport) error {
	if err := tr.Send(ctx, sentinel); err != nil {
		return shiperr.AbortWrap(layer, "failed to send sentinel", err)
	}
	return nil
}

// waitForSentinel races an incoming frame against the 10s deadline. When a
// frame arrives, beforeCheck (if non-nil) runs before the frame is
// validated. It does not use race.FirstToFinish: with exactly two
// distinct-typed branches (a frame-or-error and a timer), a plain typed
// select is clearer, per the preference for typed select over the generic
// race primitive wherever the branch set is small and fixed.
func waitForSentinel(ctx context.Context, tr transport.Transport, beforeCheck func() error) error {
	recvCh := make(chan transport.Frame, 1)
	errCh := make(chan error, 1)
	go func() {
		frame, err := tr.Recv(ctx)
		if err != nil {
			errCh <- err
			return
		}
		recvCh <- frame
	}()

	t := timer.New()
	t.Start(Wait)

	select {
	case frame := <-recvCh:
		t.Cancel()
		if beforeCheck != nil {
			if err := beforeCheck(); err != nil {
				return err
			}
		}
		if !validSentinel(frame) {
			return shiperr.Abort(layer, "peer sent a non-sentinel CMI frame")
		}
		return nil
	case err := <-errCh:
		t.Cancel()
		return shiperr.AbortWrap(layer, "transport error while awaiting sentinel", err)
	case <-t.C():
		return shiperr.Abort(layer, "timed out waiting for peer sentinel")
	case <-ctx.Done():
		t.Cancel()
		return shiperr.AbortWrap(layer, "cancelled while awaiting sentinel", ctx.Err())
	}
}

func validSentinel(frame transport.Frame) bool {
	return frame.Tag == transport.TagReserved &&
		len(frame.Payload) == 1 &&
		frame.Payload[0] == 0x00
}
