// Package wsconn adapts a gorilla/websocket connection to the ship
// transport.Transport interface. A single background goroutine reads
// frames off the socket and publishes them on a channel; Recv selects on
// that channel, never touching the socket directly, so a cancelled Recv
// never steals the frame a later Recv is waiting for.
package wsconn

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
)

// Conn implements transport.Transport over a *websocket.Conn.
type Conn struct {
	ws *websocket.Conn

	frames chan transport.Frame
	readErr chan error

	writeMu sync.Mutex
	closeOnce sync.Once
}

// New wraps an already-dialed or already-accepted WebSocket connection and
// starts its background reader.
func New(ws *websocket.Conn) *Conn {
	c := &Conn{
		ws:      ws,
		frames:  make(chan transport.Frame, 1),
		readErr: make(chan error, 1),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr <- err
			close(c.frames)
			return
		}

		frame, ok := decodeFrame(msgType, data)
		if !ok {
			// Empty frames are a protocol violation the receiving layer
			// must observe, not something the transport silently drops.
			c.readErr <- fmt.Errorf("wsconn: empty frame")
			close(c.frames)
			return
		}

		select {
		case c.frames <- frame:
		default:
			// No layer ever calls Recv concurrently nor queues more than
			// one outstanding read, so a full buffer means a frame was
			// never collected; keep only the newest.
			select {
			case <-c.frames:
			default:
			}
			c.frames <- frame
		}
	}
}

func decodeFrame(msgType int, data []byte) (transport.Frame, bool) {
	if len(data) == 0 {
		return transport.Frame{}, false
	}
	_ = msgType // text vs binary is transcoded identically; both carry UTF-8 JSON or raw tag+payload bytes
	return transport.Frame{Tag: transport.Tag(data[0]), Payload: data[1:]}, true
}

// Recv blocks until a frame arrives, ctx is cancelled, or the connection
// closes.
func (c *Conn) Recv(ctx context.Context) (transport.Frame, error) {
	select {
	case frame, ok := <-c.frames:
		if !ok {
			select {
			case err := <-c.readErr:
				return transport.Frame{}, fmt.Errorf("wsconn: recv: %w", err)
			default:
				return transport.Frame{}, fmt.Errorf("wsconn: recv: connection closed")
			}
		}
		return frame, nil
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

// Send writes frame as a single binary WebSocket message: the tag octet
// followed by the payload.
func (c *Conn) Send(ctx context.Context, frame transport.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, 0, len(frame.Payload)+1)
	buf = append(buf, byte(frame.Tag))
	buf = append(buf, frame.Payload...)

	if err := c.ws.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return fmt.Errorf("wsconn: send: %w", err)
	}
	return nil
}

// Close sends a WebSocket close frame with the given code and reason, then
// closes the underlying connection. It is safe to call more than once.
func (c *Conn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		writeErr := c.ws.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
		)
		c.writeMu.Unlock()

		closeErr := c.ws.Close()
		if writeErr != nil {
			err = writeErr
			return
		}
		err = closeErr
	})
	return err
}
