package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/flexiblepower/shipproto-go/internal/logger"
	"github.com/flexiblepower/shipproto-go/pkg/ship/layers/data"
)

// runInteractive reads lines from stdin and sends each as a SHIP data
// message, printing whatever the peer sends back. It exits when stdin
// closes, ctx is cancelled, or the data channel errors.
func runInteractive(ctx context.Context, ch *data.Channel, log logger.Logger) error {
	recvErr := make(chan error, 1)
	go func() {
		for {
			var msg interface{}
			if err := ch.Recv(ctx, &msg); err != nil {
				recvErr <- err
				return
			}
			fmt.Printf("< %v\n", msg)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-recvErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := ch.Send(ctx, line); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}
