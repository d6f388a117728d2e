// Package event defines the events routed from the dispatcher to live
// connections. Events are value types; the Type is the name used on the
// wire by the transport layer.
package event

import (
	"dm-relay/domain"

	"github.com/google/uuid"
)

type Type string

const (
	MessageReceivedType   Type = "receive-message"
	MessageSentType       Type = "message-sent"
	MessageFailedType     Type = "message-failed"
	UserTypingType        Type = "user-typing"
	UserStoppedTypingType Type = "user-stop-typing"
	StatusChangedType     Type = "user-status-change"
)

type DomainEvent interface {
	EventType() Type
}

// MessageReceived is delivered to the receiver's connection when a
// message addressed to it has been persisted.
type MessageReceived struct {
	Message domain.Message
}

func (MessageReceived) EventType() Type { return MessageReceivedType }

// MessageSent is the sender's acknowledgment that its message has been
// durably stored. It is emitted regardless of receiver reachability.
type MessageSent struct {
	Message domain.Message
}

func (MessageSent) EventType() Type { return MessageSentType }

// MessageFailed tells the sender that a send intent could not be
// persisted. The message is not retried.
type MessageFailed struct {
	ReceiverID uuid.UUID
	Reason     string
}

func (MessageFailed) EventType() Type { return MessageFailedType }

// UserTyping and UserStoppedTyping are ephemeral signals, forwarded
// verbatim and never persisted.
type UserTyping struct {
	UserID uuid.UUID
}

func (UserTyping) EventType() Type { return UserTypingType }

type UserStoppedTyping struct {
	UserID uuid.UUID
}

func (UserStoppedTyping) EventType() Type { return UserStoppedTypingType }

// StatusChanged announces a presence transition to every live connection.
type StatusChanged struct {
	UserID uuid.UUID
	Status domain.Status
}

func (StatusChanged) EventType() Type { return StatusChangedType }
