package runtime

import (
	"context"
	"testing"

	"dm-relay/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type nopSink struct{ name string }

func (s *nopSink) Consume(_ context.Context, _ event.DomainEvent) error { return nil }

func Test_Register_Replaces_Previous_Handle(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry()
	userID := uuid.New()
	h1 := &nopSink{name: "first"}
	h2 := &nopSink{name: "second"}

	req.Nil(registry.Register(userID, h1))

	previous := registry.Register(userID, h2)
	req.Same(h1, previous)

	current, ok := registry.Lookup(userID)
	req.True(ok)
	req.Same(h2, current)
}

func Test_Unregister_Is_Owner_Checked(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry()
	userID := uuid.New()
	h1 := &nopSink{name: "stale"}
	h2 := &nopSink{name: "current"}

	registry.Register(userID, h1)
	registry.Register(userID, h2)

	// The stale handle's late disconnect must not remove the new entry.
	req.False(registry.Unregister(userID, h1))
	current, ok := registry.Lookup(userID)
	req.True(ok)
	req.Same(h2, current)

	req.True(registry.Unregister(userID, h2))
	_, ok = registry.Lookup(userID)
	req.False(ok)
}

func Test_Owner_Tracks_Current_Handle_Only(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry()
	userID := uuid.New()
	h1 := &nopSink{name: "stale"}
	h2 := &nopSink{name: "current"}

	registry.Register(userID, h1)
	registry.Register(userID, h2)

	owner, ok := registry.Owner(h2)
	req.True(ok)
	req.Equal(userID, owner)

	// Superseded handles lose their owner at registration time.
	_, ok = registry.Owner(h1)
	req.False(ok)
}

func Test_Snapshot_Returns_All_Live_Handles(t *testing.T) {
	req := require.New(t)
	registry := NewConnectionRegistry()

	a, b := uuid.New(), uuid.New()
	ha := &nopSink{name: "a"}
	hb := &nopSink{name: "b"}
	registry.Register(a, ha)
	registry.Register(b, hb)

	snapshot := registry.Snapshot()
	req.Len(snapshot, 2)
	req.Contains(snapshot, ha)
	req.Contains(snapshot, hb)
}
