package websocket

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/hub"
)

// TokenVerifier 校验 Bearer Token 并返回用户 ID，由 service.AuthService 实现。
// 作为纯函数依赖注入，会话本身不持有任何认证状态。
type TokenVerifier interface {
	VerifyToken(token string) (uint, error)
}

// WebSocketHandler 负责 WebSocket 升级、Token 校验和客户端注册。
// URL 预期格式: /ws/:roomId?token=<jwt>
// 浏览器无法在 WebSocket 握手时设置自定义头，因此 token 走查询参数。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	store    hub.MessageStore
	verifier TokenVerifier
}

// NewWebSocketHandler 创建 WebSocketHandler 实例
func NewWebSocketHandler(h *hub.Hub, store hub.MessageStore, verifier TokenVerifier) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if store == nil {
		panic("MessageStore cannot be nil for WebSocketHandler")
	}
	if verifier == nil {
		panic("TokenVerifier cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// TODO: 生产环境应基于配置检查 Origin
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return &WebSocketHandler{
		upgrader: upgrader,
		hub:      h,
		store:    store,
		verifier: verifier,
	}
}

// HandleConnection 处理一次 WebSocket 连接请求。
// 状态机: Connecting（升级）-> Authenticating（校验 token）-> Active（注册并启动泵）。
// 认证失败以 1008 (policy violation) 关闭，注册表不会被触碰。
func (wh *WebSocketHandler) HandleConnection(c *gin.Context) {
	logCtx := logrus.WithField("remote_addr", c.ClientIP())

	// 1. 解析房间 ID（升级前，格式错误直接返回 HTTP 错误）
	roomIDStr := c.Param("roomId")
	roomID64, err := strconv.ParseUint(roomIDStr, 10, 32)
	if err != nil {
		logCtx.WithError(err).Warnf("WS Handler: invalid room ID format: %s", roomIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}
	roomID := uint(roomID64)
	logCtx = logCtx.WithField("room_id", roomID)

	// 2. 升级到 WebSocket。必须先升级才能向对端发送 WebSocket 关闭码。
	conn, err := wh.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 失败时已自动写入 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	// 3. 校验 token。失败则发送 1008 关闭帧并断开，绝不触碰注册表。
	userID, err := wh.verifier.VerifyToken(c.Query("token"))
	if err != nil {
		logCtx.WithError(err).Warn("WS Handler: token rejected, closing with policy violation")
		closePolicyViolation(conn)
		return
	}
	logCtx = logCtx.WithField("user_id", userID)

	// 4. 创建客户端，注册进房间，启动读写泵。
	// 之后连接的生命周期完全由 ReadPump/WritePump 接管。
	client := hub.NewClient(wh.hub, conn, wh.store, roomID, userID)
	wh.hub.Join(client)
	client.Run()

	logCtx.Info("WS Handler: client connected and pumps started")
}

// closePolicyViolation 尽力发送 1008 关闭帧后断开连接
func closePolicyViolation(conn *websocket.Conn) {
	deadline := time.Now().Add(5 * time.Second)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token")
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
	_ = conn.Close()
}
