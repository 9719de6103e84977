// Package data implements the application data channel carried by
// 0x02-tagged frames once all four handshake layers have completed.
package data

import (
	"context"
	"encoding/json"

	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/message"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
)

const layer = "data"

// Channel sends and receives application payloads tagged with a fixed
// protocol id, negotiated out of band before the connection is built.
type Channel struct {
	tr         transport.Transport
	protocolID int
}

// New wraps tr as a data channel using protocolID as the outgoing header.
func New(tr transport.Transport, protocolID int) *Channel {
	return &Channel{tr: tr, protocolID: protocolID}
}

// Send encodes value as this channel's protocol id and sends it as a
// 0x02-tagged frame.
func (c *Channel) Send(ctx context.Context, value interface{}) error {
	raw, err := message.EncodeData(c.protocolID, value)
	if err != nil {
		return shiperr.AbortWrap(layer, "failed to encode data envelope", err)
	}
	if err := c.tr.Send(ctx, transport.Frame{Tag: transport.TagData, Payload: raw}); err != nil {
		return shiperr.AbortWrap(layer, "failed to send data frame", err)
	}
	return nil
}

// Recv blocks for the next data frame and decodes its payload into out.
func (c *Channel) Recv(ctx context.Context, out interface{}) error {
	frame, err := c.tr.Recv(ctx)
	if err != nil {
		return shiperr.AbortWrap(layer, "transport error awaiting data frame", err)
	}
	if frame.Tag != transport.TagData {
		return shiperr.Abort(layer, "received frame is not tagged as data")
	}

	env, err := message.DecodeData(frame.Payload)
	if err != nil {
		return shiperr.AbortWrap(layer, "failed to decode data envelope", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return shiperr.AbortWrap(layer, "failed to unmarshal data payload", err)
	}
	return nil
}
