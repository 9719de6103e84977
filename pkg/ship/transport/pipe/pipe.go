// Package pipe provides an in-memory transport.Transport pair for exercising
// the handshake core end to end without a real socket. Unlike wsconn it has
// no reader goroutine; as with wsconn, a Recv ended by its context consumes
// no frame.
package pipe

import (
	"context"
	"fmt"
	"sync"

	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
)

// New returns two connected Transports; frames sent on one arrive on the
// other.
func New() (transport.Transport, transport.Transport) {
	aToB := make(chan transport.Frame, 1)
	bToA := make(chan transport.Frame, 1)
	closed := make(chan struct{})
	var closeOnce sync.Once

	a := &halfPipe{send: aToB, recv: bToA, closed: closed, closeOnce: &closeOnce}
	b := &halfPipe{send: bToA, recv: aToB, closed: closed, closeOnce: &closeOnce}
	return a, b
}

type halfPipe struct {
	send      chan<- transport.Frame
	recv      <-chan transport.Frame
	closed    chan struct{}
	closeOnce *sync.Once

	closeCode   int
	closeReason string
}

func (h *halfPipe) Recv(ctx context.Context) (transport.Frame, error) {
	select {
	case frame, ok := <-h.recv:
		if !ok {
			return transport.Frame{}, fmt.Errorf("pipe: recv: closed")
		}
		return frame, nil
	case <-h.closed:
		return transport.Frame{}, fmt.Errorf("pipe: recv: closed")
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (h *halfPipe) Send(ctx context.Context, frame transport.Frame) error {
	select {
	case h.send <- frame:
		return nil
	case <-h.closed:
		return fmt.Errorf("pipe: send: closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *halfPipe) Close(code int, reason string) error {
	h.closeOnce.Do(func() {
		h.closeCode, h.closeReason = code, reason
		close(h.closed)
	})
	return nil
}
