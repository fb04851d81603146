package services

import (
	"chat-link/domain"
	"chat-link/repositories"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

type IMessageService interface {
	History(ctx context.Context, user1, user2 string) ([]domain.HistoryEntry, error)
	Clear(ctx context.Context, sender, receiver string) (domain.ClearResult, error)
}

type MessageService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
}

func NewMessageService(log *slog.Logger, userRepository repositories.IUserRepository) IMessageService {
	return &MessageService{log: log, userRepository: userRepository}
}

// History reads the conversation from user1's own copy, oldest first,
// tagging each message "send" or "receive" from user1's point of view.
// A conversation with oneself is always empty.
func (s *MessageService) History(_ context.Context, user1, user2 string) ([]domain.HistoryEntry, error) {
	messages, err := s.userRepository.GetMessages(user1)
	if err != nil {
		return nil, err
	}
	if user1 == user2 {
		return []domain.HistoryEntry{}, nil
	}

	return lo.FilterMap(messages, func(m domain.ChatMessage, _ int) (domain.HistoryEntry, bool) {
		if !m.Between(user1, user2) {
			return domain.HistoryEntry{}, false
		}
		direction := domain.DirectionReceive
		if m.SenderID == user1 {
			direction = domain.DirectionSend
		}
		return domain.HistoryEntry{Data: m, Type: direction}, true
	}), nil
}

// Clear only touches the sender's copy, the receiver keeps its own history.
func (s *MessageService) Clear(_ context.Context, sender, receiver string) (domain.ClearResult, error) {
	result, err := s.userRepository.RemoveConversation(sender, receiver)
	if err != nil {
		return domain.ClearResult{}, err
	}
	s.log.Debug("Conversation cleared", "owner_id", sender, "counterpart_id", receiver, "removed", result.RemovedCount)
	return result, nil
}
