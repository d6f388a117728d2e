// Package runtime holds the presence-aware dispatcher and its
// connection registry. It routes events between live connections and
// reconciles them with durable storage; it contains no transport logic.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"dm-relay/contract"
	"dm-relay/domain"
	"dm-relay/domain/event"
	"dm-relay/errors"
	"dm-relay/observability"
	"dm-relay/repositories"

	"github.com/google/uuid"
)

// Dispatcher consumes connection lifecycle events and message/typing
// intents, mutates the registry and the user directory, persists
// messages, and emits routed events to connection handles.
//
// Persistence never runs under a registry lock: the registry guards its
// own maps, and the dispatcher re-reads connection state after every
// store call, since the receiver may come or go during the I/O.
type Dispatcher struct {
	log      *slog.Logger
	registry contract.IRegistry
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
	metrics  *observability.Metrics
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, users repositories.IUserRepository,
	metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		log:      log,
		registry: registry,
		messages: messages,
		users:    users,
		metrics:  metrics,
	}
}

// Connect registers the handle as the user's single active connection,
// marks the user online in the directory and broadcasts the presence
// change to every live connection. A replaced handle is simply orphaned;
// its own disconnect will be recognized as stale and ignored.
func (d *Dispatcher) Connect(ctx context.Context, userID uuid.UUID, sink contract.EventSink) {
	if previous := d.registry.Register(userID, sink); previous != nil {
		d.log.Info("connection replaced", "user_id", userID)
	}

	if err := d.users.SetStatus(userID, domain.StatusOnline); err != nil {
		// Directory status is advisory; routing stays correct without it.
		d.log.Warn("failed to persist online status", "user_id", userID, "error", err)
	}

	d.broadcast(ctx, event.StatusChanged{UserID: userID, Status: domain.StatusOnline})
}

// Disconnect resolves the handle's owner and, only if the handle is
// still the current one, removes it, marks the user offline and
// broadcasts. A superseded handle's late close emits nothing: the user
// is still online through its newer connection.
func (d *Dispatcher) Disconnect(ctx context.Context, sink contract.EventSink) {
	userID, ok := d.registry.Owner(sink)
	if !ok {
		return
	}
	if !d.registry.Unregister(userID, sink) {
		return
	}

	if err := d.users.SetStatus(userID, domain.StatusOffline); err != nil {
		d.log.Warn("failed to persist offline status", "user_id", userID, "error", err)
	}

	d.broadcast(ctx, event.StatusChanged{UserID: userID, Status: domain.StatusOffline})
}

// SendMessage validates, persists and routes one message intent.
//
// Empty bodies are rejected before any side effect: nothing is stored
// and no event is emitted. A persistence failure is surfaced to the
// sender's connection as a message-failed event and returned; the
// message is not retried. On success the receiver (if reachable) gets
// receive-message and the sender always gets message-sent; the two
// deliveries are independent and neither blocks or reverts the other.
func (d *Dispatcher) SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, body string) error {
	body = domain.NormalizeBody(body)
	if body == "" {
		return errors.ErrEmptyMessage
	}

	// Display name is resolved at send time, not cached.
	senderName := ""
	if sender, err := d.users.GetByID(senderID); err == nil {
		senderName = sender.Username
	} else {
		d.log.Warn("sender not in directory", "user_id", senderID, "error", err)
	}

	msg, err := d.messages.Append(senderID, receiverID, body)
	if err != nil {
		d.metrics.IncrPersistFailures()
		if sender, ok := d.registry.Lookup(senderID); ok {
			d.deliver(ctx, sender, event.MessageFailed{ReceiverID: receiverID, Reason: "message could not be stored"})
		}
		return fmt.Errorf("send from %s to %s: %w", senderID, receiverID, err)
	}
	d.metrics.IncrMessagesPersisted()
	msg.SenderName = senderName

	// Connection state is read fresh after the persistence call; the
	// receiver may have connected or dropped while the write was in
	// flight.
	if receiver, ok := d.registry.Lookup(receiverID); ok {
		d.deliver(ctx, receiver, event.MessageReceived{Message: msg})
		d.metrics.IncrMessagesDelivered()
	} else {
		d.metrics.IncrDeliveryMisses()
		d.log.Debug("receiver unreachable", "receiver_id", receiverID)
	}

	if sender, ok := d.registry.Lookup(senderID); ok {
		d.deliver(ctx, sender, event.MessageSent{Message: msg})
	}
	return nil
}

// Typing forwards a typing signal if the receiver is reachable and
// silently drops it otherwise. Typing signals are lossy and never
// persisted; the stop-typing idle timeout is the client's timer.
func (d *Dispatcher) Typing(ctx context.Context, senderID, receiverID uuid.UUID) {
	d.routeSignal(ctx, receiverID, event.UserTyping{UserID: senderID})
}

func (d *Dispatcher) StopTyping(ctx context.Context, senderID, receiverID uuid.UUID) {
	d.routeSignal(ctx, receiverID, event.UserStoppedTyping{UserID: senderID})
}

func (d *Dispatcher) routeSignal(ctx context.Context, receiverID uuid.UUID, evt event.DomainEvent) {
	receiver, ok := d.registry.Lookup(receiverID)
	if !ok {
		d.metrics.IncrTypingDropped()
		return
	}
	d.deliver(ctx, receiver, evt)
	d.metrics.IncrTypingForwarded()
}

// broadcast sends an event to every registered connection, including
// the one that caused it. Self-delivery is harmless; per-sink failures
// are isolated so one misbehaving connection cannot stop the fan-out.
func (d *Dispatcher) broadcast(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range d.registry.Snapshot() {
		d.deliver(ctx, sink, evt)
	}
	d.metrics.IncrPresenceBroadcasts()
}

// deliver is fire-and-forget: sinks are non-blocking, and a failure on
// one handle must never crash the dispatcher or block another delivery.
func (d *Dispatcher) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	if err := sink.Consume(ctx, evt); err != nil {
		d.metrics.IncrSinkDrops()
		d.log.Warn("event delivery failed", "event", evt.EventType(), "error", err)
	}
}
