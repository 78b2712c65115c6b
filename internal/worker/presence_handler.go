package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/hub"
	"github.com/itzsudipta/SwiftChat/internal/service"
)

// PresenceReconcileHandler 处理周期性的在线对账任务：
// 以注册表的当前快照为准，重写/清除 Redis 中的在线集合。
type PresenceReconcileHandler struct {
	hub             *hub.Hub
	presenceService *service.PresenceService
}

// NewPresenceReconcileHandler 创建 PresenceReconcileHandler 实例
func NewPresenceReconcileHandler(h *hub.Hub, presenceService *service.PresenceService) *PresenceReconcileHandler {
	if h == nil {
		panic("Hub cannot be nil for PresenceReconcileHandler")
	}
	if presenceService == nil {
		panic("PresenceService cannot be nil for PresenceReconcileHandler")
	}
	return &PresenceReconcileHandler{hub: h, presenceService: presenceService}
}

// ProcessTask 实现 asynq.Handler
func (ph *PresenceReconcileHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	active := ph.hub.RoomMembers()
	if err := ph.presenceService.Reconcile(ctx, active); err != nil {
		logrus.WithError(err).Warn("Presence reconcile task failed")
		return err // 交给 asynq 重试
	}
	logrus.WithField("active_rooms", len(active)).Debug("Presence reconcile completed")
	return nil
}
