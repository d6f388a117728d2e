// Package domain contains core concepts of the messaging system.
// This file defines Message records and related rules.
// Messages are immutable once persisted.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents one direct message between two users.
// The id and timestamp are assigned by the store at append time.
// SenderName is resolved from the user directory when the message
// crosses a boundary; it is not part of the stored record.
type Message struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Body       string
	Read       bool
	CreatedAt  time.Time
	SenderName string
}

// PairKey returns the storage prefix shared by both directions of a
// conversation. The two ids are ordered lexicographically so that
// (a,b) and (b,a) map to the same prefix.
func PairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// NormalizeBody trims a send intent's body.
// An empty result means the intent must be rejected.
func NormalizeBody(body string) string {
	return strings.TrimSpace(body)
}
