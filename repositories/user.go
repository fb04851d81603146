//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"chat-link/domain"
	"chat-link/errors"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	userPrefix      = "user:"
	userEmailPrefix = "user_email:"
)

// IUserRepository is the user document store. A user document owns its embedded
// message history, which is appended to and pulled from atomically.
type IUserRepository interface {
	CreateUser(user NewUser) (domain.User, error)
	GetUserByEmail(email string) (domain.Credentials, error)
	GetUserByID(id string) (domain.User, error)
	ListUsers(excludeID string) ([]domain.User, error)
	AppendMessage(ownerID string, message domain.ChatMessage) error
	GetMessages(ownerID string) ([]domain.ChatMessage, error)
	RemoveConversation(ownerID, counterpartID string) (domain.ClearResult, error)
}

type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Picture      string
}

type UserRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserRepository(db *badger.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{db: db, log: log}
}

// DiskUser is the persisted form of a user, the only place the password hash lives.
type DiskUser struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Picture      string    `json:"picture,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUser persists the user and its email index in one transaction.
// User IDs are UUIDv7 so that a prefix scan returns users in creation order.
func (u *UserRepository) CreateUser(user NewUser) (domain.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.User{}, fmt.Errorf("id generation failed: %w", err)
	}
	now := time.Now().UTC()
	disk := DiskUser{
		ID:           id.String(),
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Picture:      user.Picture,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	data, err := json.Marshal(disk)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := emailKey(user.Email)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrUserAlreadyExists
		case !goerrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.Set(userKey(disk.ID), data); err != nil {
			return err
		}
		return txn.Set(key, []byte(disk.ID))
	})
	// A conflict means another transaction wrote the same email key first
	if goerrors.Is(err, badger.ErrConflict) {
		return domain.User{}, errors.ErrUserAlreadyExists
	}
	if err != nil {
		return domain.User{}, err
	}

	return toUser(disk), nil
}

func (u *UserRepository) GetUserByEmail(email string) (domain.Credentials, error) {
	var disk DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(emailKey(email))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		disk, err = readUser(txn, string(id))
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Credentials{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{User: toUser(disk), PasswordHash: disk.PasswordHash}, nil
}

func (u *UserRepository) GetUserByID(id string) (domain.User, error) {
	var disk DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		disk, err = readUser(txn, id)
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

// ListUsers returns every user but excludeID, oldest first.
func (u *UserRepository) ListUsers(excludeID string) ([]domain.User, error) {
	users := make([]domain.User, 0)
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if string(it.Item().Key()[len(prefix):]) == excludeID {
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				var disk DiskUser
				if err := json.Unmarshal(val, &disk); err != nil {
					return fmt.Errorf("failed to unmarshal user: %w", err)
				}
				users = append(users, toUser(disk))
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
	return users, nil
}

func readUser(txn *badger.Txn, id string) (DiskUser, error) {
	var disk DiskUser
	item, err := txn.Get(userKey(id))
	if err != nil {
		return disk, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &disk)
	})
	return disk, err
}

func userKey(id string) []byte {
	return []byte(userPrefix + id)
}

// Emails are matched case-insensitively.
func emailKey(email string) []byte {
	return []byte(userEmailPrefix + strings.ToLower(strings.TrimSpace(email)))
}

func toUser(disk DiskUser) domain.User {
	return domain.User{
		ID:        disk.ID,
		Name:      disk.Name,
		Email:     disk.Email,
		Picture:   disk.Picture,
		CreatedAt: disk.CreatedAt,
		UpdatedAt: disk.UpdatedAt,
	}
}
