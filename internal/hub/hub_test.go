package hub

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// newTestClient 创建一个不带真实连接的客户端，只用于注册表和广播语义测试
func newTestClient(h *Hub, roomID, userID uint) *Client {
	return NewClient(h, nil, nil, roomID, userID)
}

// roomExists 白盒检查房间条目是否仍在表中
func roomExists(h *Hub, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID]
	return ok
}

func TestHub_JoinSnapshotLeave(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 5, 1)
	b := newTestClient(h, 5, 2)

	h.Join(a)
	h.Join(b)

	snapshot := h.Snapshot(5)
	assert.Len(t, snapshot, 2)
	assert.Contains(t, snapshot, a)
	assert.Contains(t, snapshot, b)
	assert.Equal(t, 2, h.Count(5))

	h.Leave(a)
	snapshot = h.Snapshot(5)
	require.Len(t, snapshot, 1)
	assert.Equal(t, b, snapshot[0])
}

func TestHub_JoinIsSetSemantics(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 3, 1)

	// 重复 Join 同一连接不产生重复成员
	h.Join(a)
	h.Join(a)

	assert.Equal(t, 1, h.Count(3))
}

func TestHub_LeaveIsIdempotent(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 9, 1)
	b := newTestClient(h, 9, 2)
	h.Join(a)
	h.Join(b)

	h.Leave(a)
	h.Leave(a) // 第二次必须是 no-op，不 panic、不影响他人

	assert.Equal(t, 1, h.Count(9))

	// 从未 Join 过的连接同样是 no-op
	h.Leave(newTestClient(h, 9, 3))
	assert.Equal(t, 1, h.Count(9))
}

func TestHub_EmptyRoomEntryIsRemoved(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 7, 1)

	h.Join(a)
	require.True(t, roomExists(h, 7))

	h.Leave(a)
	assert.False(t, roomExists(h, 7), "成员集合变空时房间条目应被整体移除")
	assert.Empty(t, h.Snapshot(7))
}

func TestHub_SnapshotReturnsCopy(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 2, 1)
	h.Join(a)

	snapshot := h.Snapshot(2)
	require.Len(t, snapshot, 1)
	snapshot[0] = nil // 修改副本不得影响注册表

	assert.Equal(t, 1, h.Count(2))
	assert.Equal(t, a, h.Snapshot(2)[0])
}

func TestHub_ConcurrentJoinLeave(t *testing.T) {
	h := NewHub()
	const workers = 64
	clients := make([]*Client, workers)
	for i := range clients {
		clients[i] = newTestClient(h, 11, uint(i+1))
	}

	// 并发 join，最终集合与交错顺序无关
	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			h.Join(c)
		}(c)
	}
	wg.Wait()
	assert.Equal(t, workers, h.Count(11))

	// 并发 leave 一半，另一半同时 join 另一个房间，互不干扰
	for i, c := range clients {
		wg.Add(1)
		if i%2 == 0 {
			go func(c *Client) {
				defer wg.Done()
				h.Leave(c)
			}(c)
		} else {
			go func(i int) {
				defer wg.Done()
				h.Join(newTestClient(h, 12, uint(1000+i)))
			}(i)
		}
	}
	wg.Wait()
	assert.Equal(t, workers/2, h.Count(11))
	assert.Equal(t, workers/2, h.Count(12))

	// 全部 leave 后两个房间条目都消失
	for i, c := range clients {
		if i%2 != 0 {
			h.Leave(c)
		}
	}
	for _, c := range h.Snapshot(12) {
		h.Leave(c)
	}
	assert.False(t, roomExists(h, 11))
	assert.False(t, roomExists(h, 12))
}

func TestHub_BroadcastDeliversToAllIncludingSender(t *testing.T) {
	h := NewHub()
	sender := newTestClient(h, 5, 42)
	other := newTestClient(h, 5, 43)
	outsider := newTestClient(h, 6, 44)
	h.Join(sender)
	h.Join(other)
	h.Join(outsider)

	created := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	h.Broadcast(&domain.Message{ID: 1, RoomID: 5, SenderID: 42, Content: "hello", CreatedAt: created})

	want := "[2024-03-01 10:30:00] User 42: hello"
	assert.Equal(t, want, string(<-sender.send), "发送者自己也应收到")
	assert.Equal(t, want, string(<-other.send))

	select {
	case payload := <-outsider.send:
		t.Fatalf("其他房间的连接不应收到消息, got %q", payload)
	default:
	}
}

func TestHub_BroadcastFailureIsolatedPerReceiver(t *testing.T) {
	h := NewHub()
	a := newTestClient(h, 7, 1)
	b := newTestClient(h, 7, 2)
	c := newTestClient(h, 7, 3)
	h.Join(a)
	h.Join(b)
	h.Join(c)

	// B 已进入关闭流程，对它的投递必然失败
	b.Close()

	h.Broadcast(&domain.Message{RoomID: 7, SenderID: 1, Content: "hi", CreatedAt: time.Now()})

	// A 和 C 正常收到
	assert.Len(t, a.send, 1)
	assert.Len(t, c.send, 1)
	// B 被推断断连并移出集合，房间里只剩 A 和 C
	assert.Equal(t, 2, h.Count(7))
	assert.NotContains(t, h.Snapshot(7), b)
}

func TestHub_BroadcastFullBufferDropsReceiver(t *testing.T) {
	h := NewHub()
	slow := newTestClient(h, 8, 1)
	fast := newTestClient(h, 8, 2)
	h.Join(slow)
	h.Join(fast)

	// 填满 slow 的发送队列，模拟一个不再消费的客户端
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, slow.trySend([]byte(fmt.Sprintf("backlog %d", i))))
	}

	h.Broadcast(&domain.Message{RoomID: 8, SenderID: 2, Content: "ping", CreatedAt: time.Now()})

	assert.Equal(t, 1, h.Count(8), "队列满的接收者应被移出房间")
	assert.NotContains(t, h.Snapshot(8), slow)
	assert.Len(t, fast.send, 1, "其余接收者不受影响")
}

func TestHub_BroadcastToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub()
	// 不应 panic，也不应创建房间条目
	h.Broadcast(&domain.Message{RoomID: 99, SenderID: 1, Content: "void", CreatedAt: time.Now()})
	assert.False(t, roomExists(h, 99))
}

// fakeTracker 记录在线通知，带锁供并发访问
type fakeTracker struct {
	mu     sync.Mutex
	joins  []uint
	leaves []uint
}

func (f *fakeTracker) MemberJoined(roomID, userID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joins = append(f.joins, userID)
}

func (f *fakeTracker) MemberLeft(roomID, userID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, userID)
}

func (f *fakeTracker) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.joins), len(f.leaves)
}

func TestHub_PresenceTrackerNotified(t *testing.T) {
	h := NewHub()
	tracker := &fakeTracker{}
	h.SetPresenceTracker(tracker)

	a := newTestClient(h, 4, 10)
	h.Join(a)
	h.Leave(a)

	// 通知是异步的，轮询等待
	deadline := time.Now().Add(2 * time.Second)
	for {
		joins, leaves := tracker.counts()
		if joins == 1 && leaves == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("presence notifications not delivered, joins=%d leaves=%d", joins, leaves)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
