package repository

import (
	"context"
	"time"
)

// PresenceRepository 定义了房间在线状态的旁路记录，通常由 Redis 实现。
// 它只是对内存注册表的观测性镜像：写入失败不影响消息的收发，
// 进程重启后由后台对账任务将其收敛到真实状态。
type PresenceRepository interface {
	// AddMember 将用户加入房间的在线集合。
	AddMember(ctx context.Context, roomID uint, userID uint) error

	// RemoveMember 将用户移出房间的在线集合。
	RemoveMember(ctx context.Context, roomID uint, userID uint) error

	// ReplaceMembers 用给定成员整体覆盖房间的在线集合，并刷新 TTL。
	// members 为空时等价于 Clear。
	ReplaceMembers(ctx context.Context, roomID uint, members []uint, ttl time.Duration) error

	// Clear 删除房间的在线集合。
	Clear(ctx context.Context, roomID uint) error

	// ListRooms 返回当前存在在线集合的房间 ID 列表。
	ListRooms(ctx context.Context) ([]uint, error)
}
