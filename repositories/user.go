package repositories

import (
	stderrors "errors"
	"fmt"
	"time"

	"dm-relay/domain"
	"dm-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IUserRepository interface {
	Create(username, email, passwordHash string) (domain.User, error)
	GetByID(id uuid.UUID) (domain.User, error)
	GetByEmail(email string) (domain.User, string, error)
	SetStatus(id uuid.UUID, status domain.Status) error
	List() ([]domain.User, error)
}

// UserRepository is the durable user directory: identity plus last-known
// presence status. The record lives under "user:id:{uuid}"; two pointer
// keys ("user:email:{email}", "user:name:{username}") enforce uniqueness
// and serve login lookups.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

type diskUser struct {
	ID           string `cbor:"1,keyasint"`
	Username     string `cbor:"2,keyasint"`
	Email        string `cbor:"3,keyasint"`
	PasswordHash string `cbor:"4,keyasint"`
	Status       string `cbor:"5,keyasint"`
	CreatedAt    int64  `cbor:"6,keyasint"`
}

func idKey(id uuid.UUID) []byte      { return []byte("user:id:" + id.String()) }
func emailKey(email string) []byte   { return []byte("user:email:" + email) }
func nameKey(username string) []byte { return []byte("user:name:" + username) }

// Create persists a new user with offline status. Email and username
// uniqueness are checked and the pointer keys written in one transaction.
func (u UserRepository) Create(username, email, passwordHash string) (domain.User, error) {
	user := domain.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Status:    domain.StatusOffline,
		CreatedAt: time.Now().UTC(),
	}

	data, err := cbor.Marshal(diskUser{
		ID:           user.ID.String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Status:       string(user.Status),
		CreatedAt:    user.CreatedAt.Unix(),
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("encode user: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if _, err := txn.Get(nameKey(username)); err == nil {
			return errors.ErrUsernameTaken
		}
		if err := txn.Set(idKey(user.ID), data); err != nil {
			return err
		}
		if err := txn.Set(emailKey(email), []byte(user.ID.String())); err != nil {
			return err
		}
		return txn.Set(nameKey(username), []byte(user.ID.String()))
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u UserRepository) GetByID(id uuid.UUID) (domain.User, error) {
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, idKey(id), &du)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, errors.ErrUserNotFound
		}
		return domain.User{}, err
	}
	return toUser(du)
}

// GetByEmail resolves the email pointer, then the record. The password
// hash is returned separately so domain.User stays free of credentials.
func (u UserRepository) GetByEmail(email string) (domain.User, string, error) {
	var du diskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		var id []byte
		if id, err = item.ValueCopy(nil); err != nil {
			return err
		}
		return readUser(txn, []byte("user:id:"+string(id)), &du)
	})
	if err != nil {
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return domain.User{}, "", errors.ErrUserNotFound
		}
		return domain.User{}, "", err
	}
	user, err := toUser(du)
	return user, du.PasswordHash, err
}

// SetStatus is a read-modify-write of the user record. Callers treat an
// unknown id as a no-op condition, per the dispatcher's error model.
func (u UserRepository) SetStatus(id uuid.UUID, status domain.Status) error {
	err := u.db.Update(func(txn *badger.Txn) error {
		var du diskUser
		if err := readUser(txn, idKey(id), &du); err != nil {
			return err
		}
		du.Status = string(status)
		data, err := cbor.Marshal(du)
		if err != nil {
			return err
		}
		return txn.Set(idKey(id), data)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	return err
}

// List returns every registered user, for the contacts listing.
func (u UserRepository) List() ([]domain.User, error) {
	prefix := []byte("user:id:")
	var users []domain.User

	err := u.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var du diskUser
			err := it.Item().Value(func(val []byte) error {
				return cbor.Unmarshal(val, &du)
			})
			if err != nil {
				return err
			}
			user, err := toUser(du)
			if err != nil {
				return err
			}
			users = append(users, user)
		}
		return nil
	})
	return users, err
}

func readUser(txn *badger.Txn, key []byte, du *diskUser) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, du)
	})
}

func toUser(du diskUser) (domain.User, error) {
	id, err := uuid.Parse(du.ID)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:        id,
		Username:  du.Username,
		Email:     du.Email,
		Status:    domain.Status(du.Status),
		CreatedAt: time.Unix(du.CreatedAt, 0).UTC(),
	}, nil
}
