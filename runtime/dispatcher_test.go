package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"dm-relay/domain"
	"dm-relay/domain/event"
	"dm-relay/errors"
	"dm-relay/observability"
	"dm-relay/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// captureSink records every event delivered to it, standing in for a
// live connection.
type captureSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *captureSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) byType(t event.Type) []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []event.DomainEvent
	for _, e := range s.events {
		if e.EventType() == t {
			matched = append(matched, e)
		}
	}
	return matched
}

type fixture struct {
	dispatcher *Dispatcher
	registry   *ConnectionRegistry
	messages   repositories.MessageRepository
	users      repositories.UserRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	messages := repositories.NewMessageRepository(db, slog.Default())
	users := repositories.NewUserRepository(db)
	registry := NewConnectionRegistry()
	dispatcher := NewDispatcher(slog.Default(), registry, messages, users, observability.NewMetrics())
	return fixture{dispatcher: dispatcher, registry: registry, messages: messages, users: users}
}

func (f fixture) createUser(t *testing.T, username string) domain.User {
	t.Helper()
	user, err := f.users.Create(username, username+"@example.com", "irrelevant-hash")
	require.NoError(t, err)
	return user
}

func Test_Send_Always_Confirms_Sender(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceSink := &captureSink{}
	f.dispatcher.Connect(ctx, alice.ID, aliceSink)

	// Receiver is offline: persistence and confirmation still happen.
	req.NoError(f.dispatcher.SendMessage(ctx, alice.ID, bob.ID, "hello"))

	stored, err := f.messages.Between(alice.ID, bob.ID)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal("hello", stored[0].Body)

	confirmations := aliceSink.byType(event.MessageSentType)
	req.Len(confirmations, 1)
	sent := confirmations[0].(event.MessageSent)
	req.Equal(stored[0].ID, sent.Message.ID)
	req.Equal("alice", sent.Message.SenderName)
}

func Test_Send_Empty_Body_Persists_Nothing(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceSink := &captureSink{}
	f.dispatcher.Connect(ctx, alice.ID, aliceSink)

	err := f.dispatcher.SendMessage(ctx, alice.ID, bob.ID, "   \t\n ")
	req.ErrorIs(err, errors.ErrEmptyMessage)

	stored, err := f.messages.Between(alice.ID, bob.ID)
	req.NoError(err)
	req.Empty(stored)
	req.Empty(aliceSink.byType(event.MessageSentType))
	req.Empty(aliceSink.byType(event.MessageFailedType))
}

func Test_Send_Delivers_Persisted_Payload_To_Receiver(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceSink, bobSink := &captureSink{}, &captureSink{}
	f.dispatcher.Connect(ctx, alice.ID, aliceSink)
	f.dispatcher.Connect(ctx, bob.ID, bobSink)

	req.NoError(f.dispatcher.SendMessage(ctx, alice.ID, bob.ID, "hi"))

	stored, err := f.messages.Between(alice.ID, bob.ID)
	req.NoError(err)
	req.Len(stored, 1)

	received := bobSink.byType(event.MessageReceivedType)
	req.Len(received, 1)
	msg := received[0].(event.MessageReceived).Message
	req.Equal(stored[0].ID, msg.ID)
	req.Equal(stored[0].Body, msg.Body)
	req.Equal(stored[0].CreatedAt, msg.CreatedAt)
	req.Equal(alice.ID, msg.SenderID)
	req.Equal("alice", msg.SenderName)
}

func Test_Disconnect_Of_Superseded_Handle_Emits_Nothing(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	observer := f.createUser(t, "observer")

	observerSink := &captureSink{}
	f.dispatcher.Connect(ctx, observer.ID, observerSink)

	stale, fresh := &captureSink{}, &captureSink{}
	f.dispatcher.Connect(ctx, alice.ID, stale)
	f.dispatcher.Connect(ctx, alice.ID, fresh) // reconnect replaces stale

	beforeLate := len(observerSink.byType(event.StatusChangedType))

	// The old connection finally closes: the user is still online
	// through the fresh handle, so nothing may be broadcast.
	f.dispatcher.Disconnect(ctx, stale)

	req.Len(observerSink.byType(event.StatusChangedType), beforeLate)

	current, ok := f.registry.Lookup(alice.ID)
	req.True(ok)
	req.Same(fresh, current)

	record, err := f.users.GetByID(alice.ID)
	req.NoError(err)
	req.Equal(domain.StatusOnline, record.Status)
}

func Test_Disconnect_Broadcasts_Offline(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceSink, bobSink := &captureSink{}, &captureSink{}
	f.dispatcher.Connect(ctx, alice.ID, aliceSink)
	f.dispatcher.Connect(ctx, bob.ID, bobSink)

	f.dispatcher.Disconnect(ctx, bobSink)

	changes := aliceSink.byType(event.StatusChangedType)
	req.NotEmpty(changes)
	last := changes[len(changes)-1].(event.StatusChanged)
	req.Equal(bob.ID, last.UserID)
	req.Equal(domain.StatusOffline, last.Status)

	record, err := f.users.GetByID(bob.ID)
	req.NoError(err)
	req.Equal(domain.StatusOffline, record.Status)
}

func Test_Typing_Routed_Only_When_Receiver_Online(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	// Offline receiver: dropped silently, no panic, no error surface.
	f.dispatcher.Typing(ctx, alice.ID, bob.ID)
	f.dispatcher.StopTyping(ctx, alice.ID, bob.ID)

	bobSink := &captureSink{}
	f.dispatcher.Connect(ctx, bob.ID, bobSink)

	f.dispatcher.Typing(ctx, alice.ID, bob.ID)
	f.dispatcher.StopTyping(ctx, alice.ID, bob.ID)

	typing := bobSink.byType(event.UserTypingType)
	req.Len(typing, 1)
	req.Equal(alice.ID, typing[0].(event.UserTyping).UserID)
	req.Len(bobSink.byType(event.UserStoppedTypingType), 1)
}

type failingMessages struct{}

func (failingMessages) Append(_, _ uuid.UUID, _ string) (domain.Message, error) {
	return domain.Message{}, fmt.Errorf("disk fault")
}

func (failingMessages) Between(_, _ uuid.UUID) ([]domain.Message, error) {
	return nil, nil
}

func Test_Persistence_Failure_Surfaces_To_Sender(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	dispatcher := NewDispatcher(slog.Default(), f.registry, failingMessages{}, f.users, observability.NewMetrics())

	aliceSink := &captureSink{}
	dispatcher.Connect(ctx, alice.ID, aliceSink)

	err := dispatcher.SendMessage(ctx, alice.ID, bob.ID, "doomed")
	req.Error(err)

	failures := aliceSink.byType(event.MessageFailedType)
	req.Len(failures, 1)
	req.Equal(bob.ID, failures[0].(event.MessageFailed).ReceiverID)
	req.Empty(aliceSink.byType(event.MessageSentType))
}

// The full conversation flow: connect, exchange, disconnect, then a
// send to the now unreachable receiver.
func Test_Direct_Message_Lifecycle(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")

	aliceSink, bobSink := &captureSink{}, &captureSink{}
	f.dispatcher.Connect(ctx, alice.ID, aliceSink)
	f.dispatcher.Connect(ctx, bob.ID, bobSink)

	req.NoError(f.dispatcher.SendMessage(ctx, alice.ID, bob.ID, "hi"))

	received := bobSink.byType(event.MessageReceivedType)
	req.Len(received, 1)
	req.Equal("hi", received[0].(event.MessageReceived).Message.Body)
	req.Equal(alice.ID, received[0].(event.MessageReceived).Message.SenderID)
	req.Len(aliceSink.byType(event.MessageSentType), 1)

	history, err := f.messages.Between(alice.ID, bob.ID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("hi", history[0].Body)

	f.dispatcher.Disconnect(ctx, bobSink)
	changes := aliceSink.byType(event.StatusChangedType)
	last := changes[len(changes)-1].(event.StatusChanged)
	req.Equal(bob.ID, last.UserID)
	req.Equal(domain.StatusOffline, last.Status)

	// Receiver gone: the message still persists and the sender is still
	// confirmed, but nothing is delivered to the stale sink.
	req.NoError(f.dispatcher.SendMessage(ctx, alice.ID, bob.ID, "are you there?"))
	req.Len(bobSink.byType(event.MessageReceivedType), 1)
	req.Len(aliceSink.byType(event.MessageSentType), 2)

	history, err = f.messages.Between(alice.ID, bob.ID)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("are you there?", history[1].Body)
}
