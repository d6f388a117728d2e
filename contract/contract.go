package contract

import (
	"context"
	"reflect"

	"dm-relay/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision purposes, avoiding the need for
// manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the connection handle: the only view the dispatcher has
// of a live client connection. Implementations must be pointer-backed so
// that handle identity comparisons in the registry are meaningful.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry maps user identities to their single active connection.
// At most one handle per user; a new registration replaces the old one.
type IRegistry interface {
	Register(userID uuid.UUID, sink EventSink) (previous EventSink)
	Unregister(userID uuid.UUID, sink EventSink) bool
	Lookup(userID uuid.UUID) (EventSink, bool)
	Owner(sink EventSink) (uuid.UUID, bool)
	Snapshot() []EventSink
}

// IDispatcher reconciles connection lifecycle, message intents and
// typing signals into persisted state and routed events.
type IDispatcher interface {
	Connect(ctx context.Context, userID uuid.UUID, sink EventSink)
	Disconnect(ctx context.Context, sink EventSink)
	SendMessage(ctx context.Context, senderID, receiverID uuid.UUID, body string) error
	Typing(ctx context.Context, senderID, receiverID uuid.UUID)
	StopTyping(ctx context.Context, senderID, receiverID uuid.UUID)
}
