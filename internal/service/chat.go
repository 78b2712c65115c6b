package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/domain"
	"github.com/itzsudipta/SwiftChat/internal/repository"
)

// ChatService 负责消息的持久化和历史查询。
// 它是实时核心消费的 Message Store：插入由数据库分配 ID 和时间戳，
// 任何持久化失败都以 ErrMessageStore 包装返回，由调用方决定是否致命。
type ChatService struct {
	messageRepo repository.MessageRepository
}

// NewChatService 创建 ChatService 实例
func NewChatService(messageRepo repository.MessageRepository) *ChatService {
	if messageRepo == nil {
		panic("MessageRepository cannot be nil for ChatService")
	}
	return &ChatService{messageRepo: messageRepo}
}

// SaveMessage 持久化一条消息并返回带 ID 和时间戳的完整记录。
// 空白内容直接拒绝，不触达存储。
func (s *ChatService) SaveMessage(ctx context.Context, roomID, senderID uint, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyMessage
	}

	msg := &domain.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.messageRepo.Save(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id":   roomID,
			"sender_id": senderID,
		}).WithError(err).Error("Failed to persist message")
		return nil, ErrMessageStore
	}
	return msg, nil
}

// History 按插入顺序返回指定房间的全部消息
func (s *ChatService) History(ctx context.Context, roomID uint) ([]domain.Message, error) {
	messages, err := s.messageRepo.FindByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load message history")
		return nil, ErrInternalServer
	}
	return messages, nil
}
