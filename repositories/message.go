package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"dm-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Append(senderID, receiverID uuid.UUID, body string) (domain.Message, error)
	Between(a, b uuid.UUID) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the stored shape of a message. The sender display name
// is resolved from the user directory at the boundary, never stored.
type diskMessage struct {
	ID         string `cbor:"1,keyasint"`
	SenderID   string `cbor:"2,keyasint"`
	ReceiverID string `cbor:"3,keyasint"`
	Body       string `cbor:"4,keyasint"`
	Read       bool   `cbor:"5,keyasint"`
	At         int64  `cbor:"6,keyasint"`
}

// messageKey builds "msg:{pair}:{timestamp_padded}:{uuid}" so that:
//  1. Both directions of a conversation share one prefix (PairKey orders
//     the two user ids).
//  2. 19-digit zero padding keeps keys in chronological order under
//     Badger's lexicographic iteration.
//  3. The UUID suffix disambiguates two messages landing on the same
//     nanosecond.
func messageKey(pair string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", pair, at.UnixNano(), id))
}

// Append persists a new message, assigning its id and UTC timestamp.
// The returned record is what the dispatcher echoes back to clients.
func (m MessageRepository) Append(senderID, receiverID uuid.UUID, body string) (domain.Message, error) {
	msg := domain.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}

	bytes, err := cbor.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode message: %w", err)
	}

	key := messageKey(domain.PairKey(senderID, receiverID), msg.CreatedAt, msg.ID)
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("persist message: %w", err)
	}
	return msg, nil
}

// Between returns every message exchanged between a and b, both
// directions merged, chronological ascending. Thanks to the padded
// timestamp in the key this is a single ordered prefix scan.
func (m MessageRepository) Between(a, b uuid.UUID) ([]domain.Message, error) {
	prefix := []byte(fmt.Sprintf("msg:%s:", domain.PairKey(a, b)))

	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				raw = append(raw, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(raw))
	for _, bytes := range raw {
		var dm diskMessage
		if err = cbor.Unmarshal(bytes, &dm); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		msg, err := toMessage(dm)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:         msg.ID.String(),
		SenderID:   msg.SenderID.String(),
		ReceiverID: msg.ReceiverID.String(),
		Body:       msg.Body,
		Read:       msg.Read,
		At:         msg.CreatedAt.UnixNano(),
	}
}

func toMessage(dm diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(dm.ID)
	if err != nil {
		return domain.Message{}, err
	}
	senderID, err := uuid.Parse(dm.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	receiverID, err := uuid.Parse(dm.ReceiverID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       dm.Body,
		Read:       dm.Read,
		CreatedAt:  time.Unix(0, dm.At).UTC(),
	}, nil
}
