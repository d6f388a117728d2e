package repositories

import (
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func Test_Append_Assigns_Identity_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	alice, bob := uuid.New(), uuid.New()
	msg, err := repository.Append(alice, bob, "first message")
	req.NoError(err)
	req.NotEqual(uuid.Nil, msg.ID)
	req.False(msg.CreatedAt.IsZero())
	req.Equal(alice, msg.SenderID)
	req.Equal(bob, msg.ReceiverID)
	req.False(msg.Read)
}

func Test_Between_Merges_Both_Directions_Chronologically(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	alice, bob := uuid.New(), uuid.New()
	bodies := []struct {
		sender, receiver uuid.UUID
		body             string
	}{
		{alice, bob, "hi bob"},
		{bob, alice, "hi alice"},
		{alice, bob, "how are you?"},
	}
	for _, m := range bodies {
		_, err := repository.Append(m.sender, m.receiver, m.body)
		req.NoError(err)
	}

	fetched, err := repository.Between(alice, bob)
	req.NoError(err)
	req.Len(fetched, 3)
	for i, m := range bodies {
		req.Equal(m.body, fetched[i].Body)
		req.Equal(m.sender, fetched[i].SenderID)
	}

	// Pair order must not matter.
	reversed, err := repository.Between(bob, alice)
	req.NoError(err)
	req.Equal(fetched, reversed)
}

func Test_Between_Isolates_Conversations(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default())

	alice, bob, clara := uuid.New(), uuid.New(), uuid.New()
	_, err := repository.Append(alice, bob, "for bob")
	req.NoError(err)
	_, err = repository.Append(alice, clara, "for clara")
	req.NoError(err)

	fetched, err := repository.Between(alice, bob)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("for bob", fetched[0].Body)

	empty, err := repository.Between(bob, clara)
	req.NoError(err)
	req.Empty(empty)
}
