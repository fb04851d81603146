//go:generate go run go.uber.org/mock/mockgen -source=user_index.go -destination=../mocks/mock_user_index.go -package=mocks
package repositories

import (
	"chat-link/domain"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"
)

const (
	idField   = "_id"
	nameField = "name"

	searchLimit = 1000
)

// IUserIndex answers name searches; the badger store stays the source of truth.
type IUserIndex interface {
	Index(user domain.User) error
	Search(ctx context.Context, term, excludeID string) ([]string, error)
}

type UserIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// OpenUserIndex opens the bluge index at path, or an in-memory one when path is empty.
func OpenUserIndex(path string, log *slog.Logger) (*UserIndex, error) {
	cfg := bluge.InMemoryOnlyConfig()
	if path != "" {
		cfg = bluge.DefaultConfig(path)
	}
	writer, err := bluge.OpenWriter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	return &UserIndex{writer: writer, log: log}, nil
}

// Index stores the lower-cased name as a single keyword term so that a wildcard
// query gives a case-insensitive substring match.
func (i *UserIndex) Index(user domain.User) error {
	doc := bluge.NewDocument(user.ID).
		AddField(bluge.NewKeywordField(nameField, strings.ToLower(user.Name)))
	return i.writer.Update(doc.ID(), doc)
}

// Rebuild re-indexes every user, used at startup since the index is derived data.
func (i *UserIndex) Rebuild(users []domain.User) error {
	for _, user := range users {
		if err := i.Index(user); err != nil {
			return fmt.Errorf("failed to index user %s: %w", user.ID, err)
		}
	}
	i.log.Info("User index rebuilt", "users", len(users))
	return nil
}

// Search returns the ids of users whose name contains term, ignoring case.
// Wildcard characters in term are dropped so they cannot widen the match.
func (i *UserIndex) Search(ctx context.Context, term, excludeID string) ([]string, error) {
	term = strings.NewReplacer("*", "", "?", "").Replace(strings.ToLower(term))

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewWildcardQuery("*" + term + "*").SetField(nameField))
	if excludeID != "" {
		query.AddMustNot(bluge.NewTermQuery(excludeID).SetField(idField))
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open bluge reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	matches, err := reader.Search(ctx, bluge.NewTopNSearch(searchLimit, query))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	ids := make([]string, 0)
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == idField {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}
	return ids, nil
}

func (i *UserIndex) Close() error {
	return i.writer.Close()
}
