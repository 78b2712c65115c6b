package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// GormMessageRepository 是 MessageRepository 接口的 GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GormMessageRepository 实例
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

// Save 实现插入一条消息。
// GORM 的 Create 会回填自增 ID 和 autoCreateTime 的 CreatedAt。
func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("gorm: save message (room %d, sender %d): %w", msg.RoomID, msg.SenderID, err)
	}
	return nil
}

// FindByRoom 实现按插入顺序返回指定房间的全部消息
func (r *GormMessageRepository) FindByRoom(ctx context.Context, roomID uint) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("id asc"). // 插入顺序，不依赖时间戳的单调性
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find messages for room %d: %w", roomID, err)
	}
	return messages, nil
}
