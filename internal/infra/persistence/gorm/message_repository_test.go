package gormpersistence_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/itzsudipta/SwiftChat/internal/domain"
	gormpersistence "github.com/itzsudipta/SwiftChat/internal/infra/persistence/gorm"
)

// newTestDB 创建一个内存 SQLite 数据库并迁移模型。
// 每个测试使用独立命名的共享缓存库，避免测试间互相污染。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "打开内存数据库不应失败")
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Message{}))
	return db
}

func TestGormMessageRepository_Save_AssignsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormMessageRepository(db)
	ctx := context.Background()

	msg := &domain.Message{RoomID: 5, SenderID: 1, Content: "hello"}
	err := repo.Save(ctx, msg)

	require.NoError(t, err)
	assert.NotZero(t, msg.ID, "数据库应分配消息 ID")
	assert.False(t, msg.CreatedAt.IsZero(), "数据库应分配创建时间戳")
}

func TestGormMessageRepository_FindByRoom_InsertionOrderAndIsolation(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormMessageRepository(db)
	ctx := context.Background()

	// 两个房间交错插入
	require.NoError(t, repo.Save(ctx, &domain.Message{RoomID: 7, SenderID: 1, Content: "first"}))
	require.NoError(t, repo.Save(ctx, &domain.Message{RoomID: 8, SenderID: 2, Content: "other room"}))
	require.NoError(t, repo.Save(ctx, &domain.Message{RoomID: 7, SenderID: 2, Content: "second"}))

	messages, err := repo.FindByRoom(ctx, 7)

	require.NoError(t, err)
	require.Len(t, messages, 2, "只应返回房间 7 的消息")
	assert.Equal(t, "first", messages[0].Content, "消息应按插入顺序返回")
	assert.Equal(t, "second", messages[1].Content)
	assert.Less(t, messages[0].ID, messages[1].ID)
}

func TestGormMessageRepository_FindByRoom_EmptyRoom(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormMessageRepository(db)

	messages, err := repo.FindByRoom(context.Background(), 999)

	require.NoError(t, err)
	assert.Empty(t, messages, "不存在的房间应返回空序列而非错误")
}
