// Package pin implements the PIN state exchange layer. It never
// implements PIN-based pairing: any peer message other than
// PinState{pin_state=none} aborts the connection.
package pin

import (
	"context"

	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/message"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
)

const layer = "pin"

// Run sends PinState{none} and accepts only the peer's PinState{none} in
// reply.
func Run(ctx context.Context, tr transport.Transport) error {
	raw, err := message.EncodePinState(message.PinState{State: message.PinNone})
	if err != nil {
		return shiperr.AbortWrap(layer, "failed to encode PinState", err)
	}
	if err := tr.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: raw}); err != nil {
		return shiperr.AbortWrap(layer, "failed to send PinState", err)
	}

	frame, err := tr.Recv(ctx)
	if err != nil {
		return shiperr.AbortWrap(layer, "transport error awaiting peer PinState", err)
	}

	m, err := message.DecodePin(frame.Payload)
	if err != nil {
		return shiperr.AbortWrap(layer, "failed to decode PIN frame", err)
	}

	if m.State == nil {
		return shiperr.Abort(layer, "peer sent an unsupported PIN message family")
	}
	if m.State.State != message.PinNone {
		return shiperr.Abort(layer, "peer requires PIN pairing, which this connection does not support")
	}
	return nil
}
