// Package httpapi is the transport edge: REST routes for auth, contacts
// and history, and the WebSocket endpoint feeding the dispatcher. It
// owns the wire shapes; the dispatcher never sees JSON.
package httpapi

import (
	"time"

	"dm-relay/domain"
	"dm-relay/domain/event"

	"github.com/samber/lo"
)

// wireMessage is the boundary shape of a persisted message.
type wireMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	Timestamp  time.Time `json:"timestamp"`
	SenderName string    `json:"senderDisplayName"`
}

// wireEvent is the envelope pushed over the WebSocket. Type matches the
// event names clients key on; unused fields are omitted.
type wireEvent struct {
	Type       string       `json:"type"`
	Message    *wireMessage `json:"message,omitempty"`
	UserID     string       `json:"userId,omitempty"`
	Status     string       `json:"status,omitempty"`
	ReceiverID string       `json:"receiverId,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// clientIntent is what clients send over the WebSocket.
type clientIntent struct {
	Type       string `json:"type"`
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body,omitempty"`
}

const (
	intentSendMessage = "send-message"
	intentTyping      = "typing"
	intentStopTyping  = "stop-typing"
)

type wireUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Status   string `json:"status"`
}

func toWireMessage(msg domain.Message) *wireMessage {
	return &wireMessage{
		ID:         msg.ID.String(),
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Body:       msg.Body,
		Read:       msg.Read,
		Timestamp:  msg.CreatedAt,
		SenderName: msg.SenderName,
	}
}

func toWireMessages(messages []domain.Message) []*wireMessage {
	return lo.Map(messages, func(msg domain.Message, _ int) *wireMessage {
		return toWireMessage(msg)
	})
}

func toWireUser(user domain.User, includeEmail bool) wireUser {
	wu := wireUser{
		ID:       user.ID.String(),
		Username: user.Username,
		Status:   string(user.Status),
	}
	if includeEmail {
		wu.Email = user.Email
	}
	return wu
}

// toWireEvent maps a routed domain event onto its envelope. Unknown
// event types return false and are skipped by the write pump.
func toWireEvent(evt event.DomainEvent) (wireEvent, bool) {
	switch e := evt.(type) {
	case event.MessageReceived:
		return wireEvent{Type: string(event.MessageReceivedType), Message: toWireMessage(e.Message)}, true
	case event.MessageSent:
		return wireEvent{Type: string(event.MessageSentType), Message: toWireMessage(e.Message)}, true
	case event.MessageFailed:
		return wireEvent{Type: string(event.MessageFailedType), ReceiverID: e.ReceiverID.String(), Reason: e.Reason}, true
	case event.UserTyping:
		return wireEvent{Type: string(event.UserTypingType), UserID: e.UserID.String()}, true
	case event.UserStoppedTyping:
		return wireEvent{Type: string(event.UserStoppedTypingType), UserID: e.UserID.String()}, true
	case event.StatusChanged:
		return wireEvent{Type: string(event.StatusChangedType), UserID: e.UserID.String(), Status: string(e.Status)}, true
	default:
		return wireEvent{}, false
	}
}
