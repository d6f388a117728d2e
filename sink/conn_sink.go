// Package sink provides the connection-handle implementation handed to
// the dispatcher: a buffered channel the transport layer drains.
package sink

import (
	"context"
	"fmt"

	"dm-relay/domain/event"
)

// ConnSink buffers events bound for one client connection. Consume is
// non-blocking: delivery to a connection is fire-and-forget and must
// never make the dispatcher wait on a slow peer.
type ConnSink struct {
	Events chan event.DomainEvent
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume hands the event to the connection's write side. A full buffer
// means the peer is not draining; the event is dropped and the caller
// told, so backpressure shows up in telemetry instead of a stall.
func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("connection buffer full, dropping %s", e.EventType())
	}
}
