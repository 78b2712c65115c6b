package websocket_test

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/itzsudipta/SwiftChat/internal/domain"
	wsHandler "github.com/itzsudipta/SwiftChat/internal/handler/websocket"
	"github.com/itzsudipta/SwiftChat/internal/hub"
	"github.com/itzsudipta/SwiftChat/internal/repository/mocks"
	"github.com/itzsudipta/SwiftChat/internal/service"
)

const testSecret = "ws-handler-test-secret"

// testEnv 组装一个带真实 Hub 和 Mock 存储的测试服务器
type testEnv struct {
	server      *httptest.Server
	hub         *hub.Hub
	messageRepo *mocks.MessageRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	userRepo := new(mocks.UserRepository)
	messageRepo := new(mocks.MessageRepository)
	authService, err := service.NewAuthService(userRepo, testSecret, 1)
	require.NoError(t, err)
	chatService := service.NewChatService(messageRepo)

	h := hub.NewHub()
	handler := wsHandler.NewWebSocketHandler(h, chatService, authService)

	router := gin.New()
	router.GET("/ws/:roomId", handler.HandleConnection)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, hub: h, messageRepo: messageRepo}
}

// wsURL 构造 ws:// 连接地址
func (e *testEnv) wsURL(roomID uint, token string) string {
	base := "ws" + strings.TrimPrefix(e.server.URL, "http")
	return fmt.Sprintf("%s/ws/%d?token=%s", base, roomID, token)
}

// signToken 用测试密钥签发一个有效 JWT
func signToken(t *testing.T, userID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(userID),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// dial 建立一个 WebSocket 连接并注册清理
func dial(t *testing.T, url string) *gorillaws.Conn {
	t.Helper()
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "WebSocket 握手不应失败")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// waitForCount 轮询等待房间达到期望的连接数
func waitForCount(t *testing.T, h *hub.Hub, roomID uint, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count(roomID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("room %d: expected %d connections, got %d", roomID, want, h.Count(roomID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// readLine 带超时读取一条文本消息
func readLine(t *testing.T, conn *gorillaws.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err, "应能在超时前读到一条消息")
	return string(data)
}

func TestHandleConnection_InvalidTokenClosedWithPolicyViolation(t *testing.T) {
	env := newTestEnv(t)

	// 握手本身成功（必须先升级才能发 WebSocket 关闭码）
	conn := dial(t, env.wsURL(5, "not-a-valid-token"))

	// 之后立即收到 1008 关闭帧
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*gorillaws.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, gorillaws.ClosePolicyViolation, closeErr.Code)

	// 注册表从未被触碰
	assert.Equal(t, 0, env.hub.Count(5))
}

func TestHandleConnection_MissingTokenRejected(t *testing.T) {
	env := newTestEnv(t)

	conn := dial(t, env.wsURL(5, ""))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	closeErr, ok := err.(*gorillaws.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, gorillaws.ClosePolicyViolation, closeErr.Code)
	assert.Equal(t, 0, env.hub.Count(5))
}

func TestHandleConnection_PersistAndFanOutIncludingSender(t *testing.T) {
	env := newTestEnv(t)

	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	env.messageRepo.On("Save", mock.Anything, mock.MatchedBy(func(msg *domain.Message) bool {
		return msg.RoomID == 5 && msg.SenderID == 42 && msg.Content == "hello"
	})).
		Run(func(args mock.Arguments) {
			msgArg := args.Get(1).(*domain.Message)
			msgArg.ID = 1
			msgArg.CreatedAt = created
		}).
		Return(nil).
		Once()

	sender := dial(t, env.wsURL(5, signToken(t, 42)))
	other := dial(t, env.wsURL(5, signToken(t, 43)))
	waitForCount(t, env.hub, 5, 2)

	require.NoError(t, sender.WriteMessage(gorillaws.TextMessage, []byte("hello")))

	want := "[2024-03-01 10:30:00] User 42: hello"
	assert.Equal(t, want, readLine(t, sender), "发送者自己也应收到广播")
	assert.Equal(t, want, readLine(t, other))

	env.messageRepo.AssertExpectations(t)
}

func TestHandleConnection_AbruptDisconnectCleansUp(t *testing.T) {
	env := newTestEnv(t)

	env.messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Run(func(args mock.Arguments) {
			msgArg := args.Get(1).(*domain.Message)
			msgArg.ID = 2
			msgArg.CreatedAt = time.Now()
		}).
		Return(nil)

	a := dial(t, env.wsURL(7, signToken(t, 1)))
	b := dial(t, env.wsURL(7, signToken(t, 2)))
	waitForCount(t, env.hub, 7, 2)

	// A 不做关闭握手，直接断开底层连接
	require.NoError(t, a.Close())
	waitForCount(t, env.hub, 7, 1)

	// B 发消息只会投递给 B 自己
	require.NoError(t, b.WriteMessage(gorillaws.TextMessage, []byte("still here")))
	assert.Contains(t, readLine(t, b), "User 2: still here")
}

func TestHandleConnection_StoreFailureNotifiesSenderOnly(t *testing.T) {
	env := newTestEnv(t)

	env.messageRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Message")).
		Return(fmt.Errorf("database is down")).
		Once()

	sender := dial(t, env.wsURL(9, signToken(t, 10)))
	other := dial(t, env.wsURL(9, signToken(t, 11)))
	waitForCount(t, env.hub, 9, 2)

	require.NoError(t, sender.WriteMessage(gorillaws.TextMessage, []byte("doomed")))

	// 发送者收到错误提示，消息未被广播
	assert.Contains(t, readLine(t, sender), "ERROR")

	require.NoError(t, other.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "其他连接不应收到任何消息")

	// 会话存活，连接仍在房间里
	assert.Equal(t, 2, env.hub.Count(9))
	env.messageRepo.AssertExpectations(t)
}
