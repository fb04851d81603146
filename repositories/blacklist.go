//go:generate go run go.uber.org/mock/mockgen -source=blacklist.go -destination=../mocks/mock_blacklist_repository.go -package=mocks
package repositories

import (
	"chat-link/errors"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const blacklistPrefix = "blacklist:"

type IBlacklistRepository interface {
	Revoke(token string, expiresAt time.Time) error
	IsRevoked(token string) (bool, error)
}

type BlacklistRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBlacklistRepository(db *badger.DB, log *slog.Logger) *BlacklistRepository {
	return &BlacklistRepository{db: db, log: log}
}

type revokedToken struct {
	RevokedAt time.Time `json:"revoked_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Revoke stores the token until its own expiry; a zero expiresAt keeps it forever.
// Revoking the same token twice returns ErrTokenAlreadyRevoked.
func (b *BlacklistRepository) Revoke(token string, expiresAt time.Time) error {
	now := time.Now().UTC()
	data, err := json.Marshal(revokedToken{RevokedAt: now, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	key := blacklistKey(token)
	entry := badger.NewEntry(key, data)
	if !expiresAt.IsZero() {
		ttl := expiresAt.Sub(now)
		if ttl <= 0 {
			ttl = time.Second
		}
		entry = entry.WithTTL(ttl)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errors.ErrTokenAlreadyRevoked
		case !goerrors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.SetEntry(entry)
	})
	if goerrors.Is(err, badger.ErrConflict) {
		return errors.ErrTokenAlreadyRevoked
	}
	return err
}

func (b *BlacklistRepository) IsRevoked(token string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(blacklistKey(token))
		return err
	})
	switch {
	case err == nil:
		return true, nil
	case goerrors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Tokens are stored hashed, a revoked credential is never written in clear.
func blacklistKey(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return []byte(blacklistPrefix + hex.EncodeToString(sum[:]))
}
