package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// MessageRepository 是 repository.MessageRepository 的 Mock 实现
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) FindByRoom(ctx context.Context, roomID uint) ([]domain.Message, error) {
	args := m.Called(ctx, roomID)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}
