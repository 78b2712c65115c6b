package repository

import (
	"context"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// MessageRepository 定义了聊天消息的持久化操作。
// 消息是只追加的：没有更新和删除。
type MessageRepository interface {
	// Save 插入一条消息。成功时回填数据库分配的 ID 和 CreatedAt。
	Save(ctx context.Context, msg *domain.Message) error

	// FindByRoom 按插入顺序返回指定房间的全部消息。
	FindByRoom(ctx context.Context, roomID uint) ([]domain.Message, error)
}
