package services

import (
	"chat-link/domain"
	"chat-link/errors"
	"chat-link/repositories"
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IDirectoryService interface {
	ListUsers(ctx context.Context, excludeID string) ([]domain.User, error)
	SearchUsers(ctx context.Context, term, excludeID string) ([]domain.User, error)
	ConnectedUsers(ctx context.Context, userID string) ([]domain.User, error)
}

type DirectoryService struct {
	log            *slog.Logger
	userRepository repositories.IUserRepository
	userIndex      repositories.IUserIndex
}

func NewDirectoryService(
	log *slog.Logger,
	userRepository repositories.IUserRepository,
	userIndex repositories.IUserIndex) IDirectoryService {
	return &DirectoryService{log: log, userRepository: userRepository, userIndex: userIndex}
}

func (s *DirectoryService) ListUsers(_ context.Context, excludeID string) ([]domain.User, error) {
	if err := checkUserID(excludeID); err != nil {
		return nil, err
	}
	return s.userRepository.ListUsers(excludeID)
}

// SearchUsers matches a case-insensitive substring of the name.
func (s *DirectoryService) SearchUsers(ctx context.Context, term, excludeID string) ([]domain.User, error) {
	if err := checkUserID(excludeID); err != nil {
		return nil, err
	}
	ids, err := s.userIndex.Search(ctx, term, excludeID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ids)
}

// ConnectedUsers returns everyone userID exchanged at least one message with.
// An unknown user simply has no contacts.
func (s *DirectoryService) ConnectedUsers(_ context.Context, userID string) ([]domain.User, error) {
	messages, err := s.userRepository.GetMessages(userID)
	if goerrors.Is(err, errors.ErrUserNotFound) {
		return []domain.User{}, nil
	}
	if err != nil {
		return nil, err
	}

	counterparts := lo.Without(
		lo.Uniq(lo.FlatMap(messages, func(m domain.ChatMessage, _ int) []string {
			return []string{m.SenderID, m.ReceiverID}
		})),
		userID,
	)
	return s.resolve(counterparts)
}

// resolve skips ids whose user no longer exists.
func (s *DirectoryService) resolve(ids []string) ([]domain.User, error) {
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.userRepository.GetUserByID(id)
		if goerrors.Is(err, errors.ErrUserNotFound) {
			s.log.Warn("Skipping unknown user", "user_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// checkUserID accepts an empty id, which excludes nobody.
func checkUserID(id string) error {
	if id == "" {
		return nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", errors.ErrInvalidUserID, id)
	}
	return nil
}
