// Package domain contains core concepts of the messaging system.
// This file defines User identities and presence status.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// User is a registered identity. Status is the last-known presence,
// mutated by the dispatcher on connect/disconnect and by login/logout.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Status    Status
	CreatedAt time.Time
}
