package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// PresenceRepository 是 repository.PresenceRepository 的 Mock 实现
type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) AddMember(ctx context.Context, roomID uint, userID uint) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *PresenceRepository) RemoveMember(ctx context.Context, roomID uint, userID uint) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *PresenceRepository) ReplaceMembers(ctx context.Context, roomID uint, members []uint, ttl time.Duration) error {
	args := m.Called(ctx, roomID, members, ttl)
	return args.Error(0)
}

func (m *PresenceRepository) Clear(ctx context.Context, roomID uint) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *PresenceRepository) ListRooms(ctx context.Context) ([]uint, error) {
	args := m.Called(ctx)
	if rooms := args.Get(0); rooms != nil {
		return rooms.([]uint), args.Error(1)
	}
	return nil, args.Error(1)
}
