package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/service"
)

// 包级别的 WebSocket 常量
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// 每个客户端发送队列的缓冲大小
	sendBufferSize = 256
)

// 持久化失败时回给发送者的提示行（消息不会被广播）
const storeFailureNotice = "ERROR: your message could not be saved and was not delivered"

// Client 代表一个已认证的 WebSocket 连接。
// 它独占连接的整个生命周期，绑定到一个房间和一个用户 ID。
// 生命周期: 认证 -> Join -> 收包循环（持久化 + 广播）-> 任何退出路径上保证 Leave。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	store  MessageStore
	roomID uint
	userID uint

	send      chan []byte
	done      chan struct{} // 关闭信号，Close 后不再尝试任何发送
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn, store MessageStore, roomID, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		store:  store,
		roomID: roomID,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) RoomID() uint { return c.roomID }
func (c *Client) UserID() uint { return c.userID }

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// Close 进入 Closing 状态：标记连接终止并关闭底层传输。
// 幂等。关闭传输会同时解除 ReadPump 的阻塞读。
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// trySend 将负载非阻塞地放入发送队列。
// 连接已进入关闭流程或队列已满时返回 false，由调用方决定后续处理。
func (c *Client) trySend(payload []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// ReadPump 是会话的 Active 循环：从连接读取文本帧，先持久化再广播。
// 在自己的 goroutine 中运行。无论因何退出（正常关闭、对端断开、协议错误），
// defer 都保证执行一次 Leave 注销，连接不会残留在任何房间的成员集合里。
func (c *Client) ReadPump() {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID})

	defer func() {
		c.hub.Leave(c)
		c.Close()
		logCtx.Info("Read pump exited, client unregistered")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed")
			}
			return // 退出循环，触发 defer 中的注销
		}
		if messageType != websocket.TextMessage {
			logCtx.Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}

		c.handleInbound(string(data), logCtx)
	}
}

// handleInbound 处理一条入站文本：持久化成功则广播，
// 持久化失败只通知发送者并丢弃这条消息，会话继续存活。
func (c *Client) handleInbound(content string, logCtx *logrus.Entry) {
	msg, err := c.store.SaveMessage(context.Background(), c.roomID, c.userID, content)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			logCtx.Debug("Dropping empty inbound message")
			return
		}
		logCtx.WithError(err).Error("Failed to persist inbound message, skipping broadcast")
		// 每条消息独立失败：向发送者报告，不中断会话
		_ = c.trySend([]byte(storeFailureNotice))
		return
	}
	c.hub.Broadcast(msg)
}

// WritePump 将发送队列中的消息写入连接，并定期发送 Ping 保活。
// 在自己的 goroutine 中运行。任何写失败都关闭连接，
// 由此解除 ReadPump 的阻塞并走到它的注销 defer。
func (c *Client) WritePump() {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": c.roomID, "user_id": c.userID})
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if c.conn != nil {
			_ = c.conn.Close()
		}
		logCtx.Debug("Write pump exited")
	}()

	for {
		select {
		case <-c.done:
			// 对端还在读时尽量发一个关闭帧
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logCtx.WithError(err).Warn("Failed to write message to websocket")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logCtx.WithError(err).Warn("Failed to send ping message")
				return
			}
		}
	}
}
