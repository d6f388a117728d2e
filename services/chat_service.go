package services

import (
	"context"

	"dm-relay/domain"
	"dm-relay/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	History(ctx context.Context, a, b uuid.UUID) ([]domain.Message, error)
	Contacts(ctx context.Context, requesterID uuid.UUID) ([]domain.User, error)
	Profile(ctx context.Context, userID uuid.UUID) (domain.User, error)
}

// ChatService serves the read side of the system: message history and
// the contacts listing. The write side (sends, typing, presence) flows
// through the dispatcher, not through here.
type ChatService struct {
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
}

func NewChatService(messages repositories.IMessageRepository, users repositories.IUserRepository) *ChatService {
	return &ChatService{messages: messages, users: users}
}

// History returns all messages between two users, chronological
// ascending, with sender display names resolved at read time.
func (s *ChatService) History(_ context.Context, a, b uuid.UUID) ([]domain.Message, error) {
	messages, err := s.messages.Between(a, b)
	if err != nil {
		return nil, err
	}

	names := make(map[uuid.UUID]string, 2)
	for _, id := range []uuid.UUID{a, b} {
		if user, err := s.users.GetByID(id); err == nil {
			names[id] = user.Username
		}
	}

	return lo.Map(messages, func(msg domain.Message, _ int) domain.Message {
		msg.SenderName = names[msg.SenderID]
		return msg
	}), nil
}

// Contacts lists every user except the requester, with last-known
// presence status.
func (s *ChatService) Contacts(_ context.Context, requesterID uuid.UUID) ([]domain.User, error) {
	users, err := s.users.List()
	if err != nil {
		return nil, err
	}
	return lo.Filter(users, func(user domain.User, _ int) bool {
		return user.ID != requesterID
	}), nil
}

func (s *ChatService) Profile(_ context.Context, userID uuid.UUID) (domain.User, error) {
	return s.users.GetByID(userID)
}
