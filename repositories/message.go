package repositories

import (
	"chat-link/domain"
	"chat-link/errors"
	"encoding/json"
	goerrors "errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const messagePrefix = "msg:"

// AppendMessage pushes message onto the embedded history of ownerID.
// The key is formatted as "msg:{owner_id}:{timestamp_padded}:{message_id}" so that:
//  1. a prefix scan returns the history in chronological order (19-digit zero padding),
//  2. two messages stored at the same nanosecond never overwrite each other.
//
// The owner document is read in the same transaction, so pushing to an unknown user fails
// instead of leaving orphan entries behind.
func (u *UserRepository) AppendMessage(ownerID string, message domain.ChatMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(ownerID)); err != nil {
			return err
		}
		return txn.Set(messageKey(ownerID, message), data)
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", errors.ErrUserNotFound, ownerID)
	}
	return err
}

// GetMessages returns the whole embedded history of ownerID, oldest first.
func (u *UserRepository) GetMessages(ownerID string) ([]domain.ChatMessage, error) {
	messages := make([]domain.ChatMessage, 0)
	err := u.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(ownerID)); err != nil {
			return err
		}

		prefix := messageOwnerPrefix(ownerID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var message domain.ChatMessage
				if err := json.Unmarshal(val, &message); err != nil {
					return fmt.Errorf("failed to unmarshal message: %w", err)
				}
				messages = append(messages, message)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", errors.ErrUserNotFound, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// RemoveConversation pulls from the history of ownerID every message exchanged with
// counterpartID, in either direction, within a single transaction.
// An unknown owner matches nothing and is not an error.
func (u *UserRepository) RemoveConversation(ownerID, counterpartID string) (domain.ClearResult, error) {
	result := domain.ClearResult{Acknowledged: true}

	err := u.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(userKey(ownerID))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		result.MatchedCount = 1

		keys, err := conversationKeys(txn, ownerID, counterpartID)
		if err != nil {
			return err
		}

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		result.RemovedCount = len(keys)
		if len(keys) > 0 {
			result.ModifiedCount = 1
		}
		return nil
	})
	if err != nil {
		return domain.ClearResult{}, err
	}
	return result, nil
}

// conversationKeys closes its iterator before the caller starts deleting.
func conversationKeys(txn *badger.Txn, ownerID, counterpartID string) ([][]byte, error) {
	prefix := messageOwnerPrefix(ownerID)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var message domain.ChatMessage
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &message)
		}); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		if message.Between(ownerID, counterpartID) {
			keys = append(keys, item.KeyCopy(nil))
		}
	}
	return keys, nil
}

func messageOwnerPrefix(ownerID string) []byte {
	return []byte(messagePrefix + ownerID + ":")
}

func messageKey(ownerID string, message domain.ChatMessage) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s",
		messagePrefix,
		ownerID,
		message.Timestamp.UnixNano(),
		message.ID,
	))
}
