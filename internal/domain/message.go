package domain

import (
	"fmt"
	"time"
)

// Message 表示一条聊天消息记录。
// 消息一旦创建即不可变：ID 和 CreatedAt 由数据库在插入时分配，
// 核心逻辑不会更新或删除消息。
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uint      `gorm:"index:idx_room;not null" json:"room_id"`
	SenderID  uint      `gorm:"index;not null" json:"sender_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// RenderLine 将消息渲染为广播给客户端的文本行。
// 格式: [<timestamp>] User <sender_id>: <content>
func (m *Message) RenderLine() string {
	return fmt.Sprintf("[%s] User %d: %s", m.CreatedAt.Format("2006-01-02 15:04:05"), m.SenderID, m.Content)
}
