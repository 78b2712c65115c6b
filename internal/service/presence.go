package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/repository"
)

// PresenceService 维护 Redis 中的房间在线镜像。
// 所有写入都是尽力而为：失败只记日志，绝不反馈给连接生命周期。
type PresenceService struct {
	presenceRepo repository.PresenceRepository
	opTimeout    time.Duration
	keyTTL       time.Duration
}

// NewPresenceService 创建 PresenceService 实例
func NewPresenceService(presenceRepo repository.PresenceRepository) *PresenceService {
	if presenceRepo == nil {
		panic("PresenceRepository cannot be nil for PresenceService")
	}
	return &PresenceService{
		presenceRepo: presenceRepo,
		opTimeout:    3 * time.Second,
		keyTTL:       10 * time.Minute,
	}
}

// MemberJoined 记录用户上线。实现 hub.PresenceTracker。
func (s *PresenceService) MemberJoined(roomID, userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.presenceRepo.AddMember(ctx, roomID, userID); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).
			WithError(err).Warn("Presence: failed to record join")
	}
}

// MemberLeft 记录用户下线。实现 hub.PresenceTracker。
func (s *PresenceService) MemberLeft(roomID, userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()
	if err := s.presenceRepo.RemoveMember(ctx, roomID, userID); err != nil {
		logrus.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID}).
			WithError(err).Warn("Presence: failed to record leave")
	}
}

// Reconcile 将 Redis 在线镜像收敛到注册表的真实状态。
// active 是注册表的当前快照（房间 ID -> 成员用户 ID 列表）。
// 注册表中不存在但 Redis 中仍有记录的房间会被清除，
// 这也覆盖了进程重启后遗留的陈旧 key。
func (s *PresenceService) Reconcile(ctx context.Context, active map[uint][]uint) error {
	known, err := s.presenceRepo.ListRooms(ctx)
	if err != nil {
		return err
	}

	for _, roomID := range known {
		if _, ok := active[roomID]; !ok {
			if err := s.presenceRepo.Clear(ctx, roomID); err != nil {
				logrus.WithField("room_id", roomID).WithError(err).Warn("Presence: failed to clear stale room")
			}
		}
	}
	for roomID, members := range active {
		if err := s.presenceRepo.ReplaceMembers(ctx, roomID, members, s.keyTTL); err != nil {
			logrus.WithField("room_id", roomID).WithError(err).Warn("Presence: failed to rewrite room members")
		}
	}
	return nil
}
