package redisstate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisPresenceRepository 是 PresenceRepository 接口的 Redis 实现。
// 每个房间对应一个 Set: <prefix>presence:<roomID>，成员为用户 ID。
// 所有 key 带 TTL，进程崩溃后残留的 key 会自行过期。
type RedisPresenceRepository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisPresenceRepository 创建 RedisPresenceRepository 实例
func NewRedisPresenceRepository(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisPresenceRepository{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (r *RedisPresenceRepository) presenceKey(roomID uint) string {
	return fmt.Sprintf("%spresence:%d", r.keyPrefix, roomID)
}

// AddMember 将用户加入房间的在线集合并刷新 TTL
func (r *RedisPresenceRepository) AddMember(ctx context.Context, roomID uint, userID uint) error {
	key := r.presenceKey(roomID)
	pipe := r.client.Pipeline()
	pipe.SAdd(ctx, key, userID)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: add member %d to room %d presence: %w", userID, roomID, err)
	}
	return nil
}

// RemoveMember 将用户移出房间的在线集合
func (r *RedisPresenceRepository) RemoveMember(ctx context.Context, roomID uint, userID uint) error {
	if err := r.client.SRem(ctx, r.presenceKey(roomID), userID).Err(); err != nil {
		return fmt.Errorf("redis: remove member %d from room %d presence: %w", userID, roomID, err)
	}
	return nil
}

// ReplaceMembers 用给定成员整体覆盖房间的在线集合并刷新 TTL
func (r *RedisPresenceRepository) ReplaceMembers(ctx context.Context, roomID uint, members []uint, ttl time.Duration) error {
	key := r.presenceKey(roomID)
	if len(members) == 0 {
		return r.Clear(ctx, roomID)
	}
	if ttl <= 0 {
		ttl = r.ttl
	}
	values := make([]interface{}, 0, len(members))
	for _, id := range members {
		values = append(values, id)
	}
	// DEL + SADD + EXPIRE 放在一个 Pipeline 中，尽量减少中间状态的可见窗口
	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.SAdd(ctx, key, values...)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: replace presence for room %d: %w", roomID, err)
	}
	return nil
}

// Clear 删除房间的在线集合
func (r *RedisPresenceRepository) Clear(ctx context.Context, roomID uint) error {
	if err := r.client.Del(ctx, r.presenceKey(roomID)).Err(); err != nil {
		return fmt.Errorf("redis: clear presence for room %d: %w", roomID, err)
	}
	return nil
}

// ListRooms 扫描所有在线集合 key，返回对应的房间 ID 列表
func (r *RedisPresenceRepository) ListRooms(ctx context.Context) ([]uint, error) {
	pattern := r.keyPrefix + "presence:*"
	var rooms []uint
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		idStr := strings.TrimPrefix(key, r.keyPrefix+"presence:")
		id, err := strconv.ParseUint(idStr, 10, 32)
		if err != nil {
			continue // 非法 key，跳过
		}
		rooms = append(rooms, uint(id))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: scan presence keys: %w", err)
	}
	return rooms, nil
}
