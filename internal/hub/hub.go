package hub

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// MessageStore 是会话消费的消息持久化契约，由 service.ChatService 实现。
type MessageStore interface {
	SaveMessage(ctx context.Context, roomID, senderID uint, content string) (*domain.Message, error)
}

// PresenceTracker 接收加入/离开事件的旁路通知（如 Redis 在线镜像）。
// 通知是尽力而为的，实现不得阻塞调用方。
type PresenceTracker interface {
	MemberJoined(roomID, userID uint)
	MemberLeft(roomID, userID uint)
}

// room 是单个房间的成员集合，携带自己的互斥锁。
// 同一房间上的 join/leave/snapshot 彼此互斥，不同房间互不竞争。
type room struct {
	mu      sync.Mutex
	clients map[*Client]bool
	// removed 标记该条目已从 Hub 的房间表中摘除。
	// 持有旧条目引用的 Join 调用看到此标记后必须重试。
	removed bool
}

// Hub 维护房间 ID 到活跃连接集合的映射。
// 它只是同步原语，不做 I/O：所有操作在正常条件下不会失败。
// 注册表纯内存，进程重启后从零重建。
type Hub struct {
	mu    sync.RWMutex // 只保护 rooms 表本身的增删查
	rooms map[uint]*room

	presence PresenceTracker // 可选
}

// NewHub 创建并返回一个新的 Hub 实例
func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]*room)}
}

// SetPresenceTracker 注入在线镜像的旁路通知，必须在服务启动前调用。
func (h *Hub) SetPresenceTracker(p PresenceTracker) {
	h.presence = p
}

// Join 将连接注册到其房间，必要时创建房间条目。
func (h *Hub) Join(c *Client) {
	if c == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	for {
		h.mu.Lock()
		r, ok := h.rooms[c.roomID]
		if !ok {
			r = &room{clients: make(map[*Client]bool)}
			h.rooms[c.roomID] = r
		}
		h.mu.Unlock()

		r.mu.Lock()
		if r.removed {
			// 条目在我们拿到引用后被并发的 Leave 摘除了，重试
			r.mu.Unlock()
			continue
		}
		r.clients[c] = true
		r.mu.Unlock()
		break
	}

	logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID}).
		Info("Client registered to hub")
	if h.presence != nil {
		go h.presence.MemberJoined(c.roomID, c.userID)
	}
}

// Leave 将连接从其房间移除；集合变空时整个房间条目也被移除。
// 幂等：移除一个不存在的连接是 no-op，不是错误。
func (h *Hub) Leave(c *Client) {
	if c == nil {
		return
	}
	h.mu.RLock()
	r, ok := h.rooms[c.roomID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	if _, present := r.clients[c]; !present {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c)
	empty := len(r.clients) == 0
	if empty {
		r.removed = true
	}
	r.mu.Unlock()

	if empty {
		h.mu.Lock()
		// 仅当表中仍是同一条目时才删除，防止误删并发重建的新房间
		if cur, ok := h.rooms[c.roomID]; ok && cur == r {
			delete(h.rooms, c.roomID)
		}
		h.mu.Unlock()
		logrus.WithField("room_id", c.roomID).Info("Room empty, removed from hub")
	}

	logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID}).
		Info("Client unregistered from hub")
	if h.presence != nil {
		go h.presence.MemberLeft(c.roomID, c.userID)
	}
}

// Snapshot 返回房间当前连接集合的副本（房间不存在时为空）。
// 绝不暴露内部可变集合。
func (h *Hub) Snapshot(roomID uint) []*Client {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}

	r.mu.Lock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		clients = append(clients, c)
	}
	r.mu.Unlock()
	return clients
}

// Count 返回房间当前的连接数
func (h *Hub) Count(roomID uint) int {
	h.mu.RLock()
	r, ok := h.rooms[roomID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	r.mu.Lock()
	n := len(r.clients)
	r.mu.Unlock()
	return n
}

// RoomMembers 返回所有活跃房间及其成员用户 ID 的快照，供在线对账任务使用。
func (h *Hub) RoomMembers() map[uint][]uint {
	h.mu.RLock()
	entries := make(map[uint]*room, len(h.rooms))
	for id, r := range h.rooms {
		entries[id] = r
	}
	h.mu.RUnlock()

	result := make(map[uint][]uint, len(entries))
	for id, r := range entries {
		r.mu.Lock()
		members := make([]uint, 0, len(r.clients))
		for c := range r.clients {
			members = append(members, c.userID)
		}
		r.mu.Unlock()
		if len(members) > 0 {
			result[id] = members
		}
	}
	return result
}

// Broadcast 将一条已持久化的消息投递给其房间的每个连接。
// 对单个接收者的投递失败（发送缓冲满或连接已在关闭）被视为
// 推断断连：该接收者被移出房间并关闭连接，其余接收者不受影响。
// Broadcast 本身从不返回错误。
func (h *Hub) Broadcast(msg *domain.Message) {
	if msg == nil {
		return
	}
	payload := []byte(msg.RenderLine())
	recipients := h.Snapshot(msg.RoomID)

	for _, c := range recipients {
		if c.trySend(payload) {
			continue
		}
		// 发送失败 -> 推断该连接已死，清理它，继续投递其他连接
		logrus.WithFields(logrus.Fields{
			"room_id":          msg.RoomID,
			"receiver_user_id": c.userID,
		}).Warn("Broadcast delivery failed, dropping receiver connection")
		h.Leave(c)
		c.Close()
	}
}
