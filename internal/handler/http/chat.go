package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itzsudipta/SwiftChat/internal/hub"
	"github.com/itzsudipta/SwiftChat/internal/service"
)

// ChatHandler 封装消息历史和房间在线状态的 HTTP 处理逻辑
type ChatHandler struct {
	chatService *service.ChatService
	hub         *hub.Hub
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService, h *hub.Hub) *ChatHandler {
	if chatService == nil {
		panic("ChatService cannot be nil for ChatHandler")
	}
	if h == nil {
		panic("Hub cannot be nil for ChatHandler")
	}
	return &ChatHandler{chatService: chatService, hub: h}
}

// CreateMessageRequest 定义直接插入消息的请求体。
// 发送者取自认证上下文，不信任请求体。
type CreateMessageRequest struct {
	RoomID  uint   `json:"room_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// CreateMessage 处理 POST /chat/messages
func (h *ChatHandler) CreateMessage(c *gin.Context) {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return
	}

	var req CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateMessage: invalid input format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
		return
	}

	msg, err := h.chatService.SaveMessage(c.Request.Context(), req.RoomID, userID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logrus.WithFields(logrus.Fields{"room_id": req.RoomID, "user_id": userID}).
			WithError(err).Error("Handler.CreateMessage: failed to save message")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save message"})
		return
	}

	c.JSON(http.StatusOK, msg)
}

// ListMessages 处理 GET /chat/messages/:roomId
func (h *ChatHandler) ListMessages(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	messages, err := h.chatService.History(c.Request.Context(), roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Handler.ListMessages: failed to load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// RoomOnline 处理 GET /chat/rooms/:roomId/online，
// 返回注册表中该房间当前的连接数。
func (h *ChatHandler) RoomOnline(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id": roomID,
		"online":  h.hub.Count(roomID),
	})
}

// --- 小工具 ---

// authenticatedUserID 读取 Auth 中间件写入的用户 ID
func authenticatedUserID(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		logrus.Warn("Handler: user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		logrus.Error("Handler: user ID in context is not uint")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return 0, false
	}
	return userID, true
}

// roomIDParam 解析 URL 中的 :roomId 参数
func roomIDParam(c *gin.Context) (uint, bool) {
	roomIDStr := c.Param("roomId")
	roomID64, err := strconv.ParseUint(roomIDStr, 10, 32)
	if err != nil {
		logrus.WithError(err).Warnf("Handler: invalid room ID format: %s", roomIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return 0, false
	}
	return uint(roomID64), true
}
