// Package cshp implements the CSHP protocol handshake layer: version and
// format negotiation following CMI.
package cshp

import (
	"context"
	"reflect"
	"time"

	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/message"
	"github.com/flexiblepower/shipproto-go/pkg/ship/timer"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
)

const layer = "cshp"

// Wait is the deadline for each side's wait phase.
const Wait = 10 * time.Second

var ourFormats = []message.Format{message.FormatJSONUTF8}
var ourVersion = message.Version{Major: 1, Minor: 0}

// RunClient executes the client state machine and returns the negotiated
// version (always (1,0) on success).
func RunClient(ctx context.Context, tr transport.Transport) (message.Version, error) {
	offer := message.ProtocolHandshake{
		Type:    message.HandshakeAnnounceMax,
		Version: ourVersion,
		Formats: ourFormats,
	}
	if err := sendHandshake(ctx, tr, offer); err != nil {
		return message.Version{}, err
	}

	m, errMsg, err := recvCSHP(ctx, tr, Wait)
	if err != nil {
		return message.Version{}, abortWithErrorFrame(ctx, tr, codeFor(err), err)
	}
	if errMsg != nil {
		return message.Version{}, abortWithErrorFrame(ctx, tr, shiperr.CodePeerError, shiperr.Abort(layer, "peer reported a CSHP error"))
	}

	if m.Type != message.HandshakeSelect || m.Version != ourVersion || !reflect.DeepEqual(m.Formats, ourFormats) {
		return message.Version{}, abortWithErrorFrame(ctx, tr, shiperr.CodeSemanticError,
			shiperr.Abort(layer, "peer's SELECT does not match our offer"))
	}

	if err := sendHandshake(ctx, tr, *m); err != nil {
		return message.Version{}, err
	}
	return m.Version, nil
}

// RunServer executes the server state machine and returns the negotiated
// version.
func RunServer(ctx context.Context, tr transport.Transport) (message.Version, error) {
	m, errMsg, err := recvCSHP(ctx, tr, Wait)
	if err != nil {
		return message.Version{}, abortWithErrorFrame(ctx, tr, codeFor(err), err)
	}
	if errMsg != nil {
		return message.Version{}, abortWithErrorFrame(ctx, tr, shiperr.CodePeerError, shiperr.Abort(layer, "peer reported a CSHP error"))
	}

	if m.Type != message.HandshakeAnnounceMax || m.Version != ourVersion || !containsFormat(m.Formats, message.FormatJSONUTF8) {
		return message.Version{}, abortWithErrorFrame(ctx, tr, shiperr.CodeSemanticError,
			shiperr.Abort(layer, "peer's announceMax does not satisfy our requirements"))
	}

	proposal := message.ProtocolHandshake{
		Type:    message.HandshakeSelect,
		Version: ourVersion,
		Formats: ourFormats,
	}
	if err := sendHandshake(ctx, tr, proposal); err != nil {
		return message.Version{}, err
	}

	confirm, errMsg, err := recvCSHP(ctx, tr, Wait)
	if err != nil {
		return message.Version{}, abortWithErrorFrame(ctx, tr, codeFor(err), err)
	}
	if errMsg != nil {
		return message.Version{}, abortWithErrorFrame(ctx, tr, shiperr.CodePeerError, shiperr.Abort(layer, "peer reported a CSHP error"))
	}

	if !reflect.DeepEqual(*confirm, proposal) {
		return message.Version{}, abortWithErrorFrame(ctx, tr, shiperr.CodeSemanticError,
			shiperr.Abort(layer, "peer's confirmation does not match our proposal"))
	}

	return proposal.Version, nil
}

func containsFormat(formats []message.Format, want message.Format) bool {
	for _, f := range formats {
		if f == want {
			return true
		}
	}
	return false
}

func sendHandshake(ctx context.Context, tr transport.Transport, m message.ProtocolHandshake) error {
	raw, err := message.EncodeProtocolHandshake(m)
	if err != nil {
		return shiperr.AbortWrap(layer, "failed to encode ProtocolHandshake", err)
	}
	if err := tr.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: raw}); err != nil {
		return shiperr.AbortWrap(layer, "failed to send ProtocolHandshake", err)
	}
	return nil
}

// timeoutErr is a sentinel distinguishing a timer expiry from a transport
// or decode failure, so callers emit the right wire error code.
type timeoutErr struct{}

func (timeoutErr) Error() string { return "cshp: timed out" }

func codeFor(err error) int {
	if _, ok := err.(timeoutErr); ok {
		return shiperr.CodeTimeout
	}
	return shiperr.CodeNone
}

// recvCSHP races an incoming frame against a fresh Wait-duration timer and
// decodes whichever CSHP family arrives first.
func recvCSHP(ctx context.Context, tr transport.Transport, wait time.Duration) (*message.ProtocolHandshake, *message.ProtocolHandshakeError, error) {
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
	t.Start(wait)

	select {
	case frame := <-recvCh:
		t.Cancel()
		m, errMsg, err := message.DecodeCSHP(frame.Payload)
		if err != nil {
			return nil, nil, shiperr.AbortWrap(layer, "failed to decode CSHP frame", err)
		}
		return m, errMsg, nil
	case err := <-errCh:
		t.Cancel()
		return nil, nil, shiperr.AbortWrap(layer, "transport error awaiting CSHP frame", err)
	case <-t.C():
		return nil, nil, timeoutErr{}
	case <-ctx.Done():
		t.Cancel()
		return nil, nil, ctx.Err()
	}
}

// abortWithErrorFrame sends ProtocolHandshakeError{code} before returning
// the abort, per the layer's rule that every abort is preceded by its
// wire-level error frame.
func abortWithErrorFrame(ctx context.Context, tr transport.Transport, code int, cause error) error {
	raw, encErr := message.EncodeProtocolHandshakeError(message.ProtocolHandshakeError{Error: code})
	if encErr == nil {
		_ = tr.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: raw})
	}
	if ae, ok := cause.(*shiperr.AbortError); ok {
		ae.Code = code
		return ae
	}
	return shiperr.AbortCode(layer, code, cause.Error())
}
