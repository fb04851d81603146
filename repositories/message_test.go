package repositories

import (
	"chat-link/domain"
	"chat-link/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func createUsers(t *testing.T, repository *UserRepository, names ...string) []domain.User {
	t.Helper()
	users := make([]domain.User, 0, len(names))
	for _, name := range names {
		user, err := repository.CreateUser(NewUser{Name: name, Email: name + "@example.com", PasswordHash: "hash"})
		require.NoError(t, err)
		users = append(users, user)
	}
	return users
}

func Test_Append_Multiple_Messages_Keeps_Order(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), testLogger())
	users := createUsers(t, repository, "alice", "bob")
	alice, bob := users[0].ID, users[1].ID

	at := time.Now().UTC()
	messages := []domain.ChatMessage{
		domain.NewChatMessage("first", alice, bob, at),
		domain.NewChatMessage("second", bob, alice, at.Add(1*time.Minute)),
		domain.NewChatMessage("third", alice, bob, at.Add(2*time.Minute)),
	}
	// Stored out of order on purpose
	for _, i := range []int{2, 0, 1} {
		req.NoError(repository.AppendMessage(alice, messages[i]))
	}

	fetched, err := repository.GetMessages(alice)
	req.NoError(err)
	req.Equal(messages, fetched)

	// Bob's history is a separate document
	fetched, err = repository.GetMessages(bob)
	req.NoError(err)
	req.Empty(fetched)
}

func Test_Append_Same_Timestamp_Keeps_Both(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), testLogger())
	users := createUsers(t, repository, "alice", "bob")
	alice, bob := users[0].ID, users[1].ID

	at := time.Now().UTC()
	req.NoError(repository.AppendMessage(alice, domain.NewChatMessage("one", alice, bob, at)))
	req.NoError(repository.AppendMessage(alice, domain.NewChatMessage("two", alice, bob, at)))

	fetched, err := repository.GetMessages(alice)
	req.NoError(err)
	req.Len(fetched, 2)
}

func Test_Append_Unknown_Owner(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), testLogger())

	err := repository.AppendMessage("unknown", domain.NewChatMessage("hi", "a", "unknown", time.Now().UTC()))
	req.ErrorIs(err, errors.ErrUserNotFound)

	_, err = repository.GetMessages("unknown")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func Test_RemoveConversation_Is_Symmetric(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), testLogger())
	users := createUsers(t, repository, "alice", "bob", "clara")
	alice, bob, clara := users[0].ID, users[1].ID, users[2].ID

	at := time.Now().UTC()
	toBob := domain.NewChatMessage("hi bob", alice, bob, at)
	fromBob := domain.NewChatMessage("hi alice", bob, alice, at.Add(time.Second))
	toClara := domain.NewChatMessage("hi clara", alice, clara, at.Add(2*time.Second))
	for _, m := range []domain.ChatMessage{toBob, fromBob, toClara} {
		req.NoError(repository.AppendMessage(alice, m))
	}

	// When alice clears the conversation with bob
	result, err := repository.RemoveConversation(alice, bob)

	// Then both directions are gone, clara's conversation stays
	req.NoError(err)
	req.Equal(domain.ClearResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1, RemovedCount: 2}, result)
	fetched, err := repository.GetMessages(alice)
	req.NoError(err)
	req.Equal([]domain.ChatMessage{toClara}, fetched)

	// And clearing again modifies nothing
	result, err = repository.RemoveConversation(alice, bob)
	req.NoError(err)
	req.Equal(domain.ClearResult{Acknowledged: true, MatchedCount: 1}, result)
}

func Test_RemoveConversation_Unknown_Owner(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t), testLogger())

	result, err := repository.RemoveConversation("unknown", "other")
	req.NoError(err)
	req.Equal(domain.ClearResult{Acknowledged: true}, result)
}
