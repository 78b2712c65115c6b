package gormpersistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itzsudipta/SwiftChat/internal/domain"
	gormpersistence "github.com/itzsudipta/SwiftChat/internal/infra/persistence/gorm"
	"github.com/itzsudipta/SwiftChat/internal/repository"
)

func TestGormUserRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	user := &domain.User{Username: "alice", Email: "alice@example.com", Password: "hashed"}
	require.NoError(t, repo.Save(ctx, user))
	assert.NotZero(t, user.ID, "数据库应分配用户 ID")

	byName, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
}

func TestGormUserRepository_Find_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	_, err := repo.FindByUsername(ctx, "ghost")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	_, err = repo.FindByEmail(ctx, "ghost@example.com")
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))

	_, err = repo.FindByID(ctx, 424242)
	assert.True(t, errors.Is(err, repository.ErrUserNotFound))
}

func TestGormUserRepository_Save_DuplicateMapsToErrDuplicateEntry(t *testing.T) {
	db := newTestDB(t)
	repo := gormpersistence.NewGormUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.User{Username: "bob", Email: "bob@example.com", Password: "x"}))

	// 相同用户名，不同邮箱
	err := repo.Save(ctx, &domain.User{Username: "bob", Email: "bob2@example.com", Password: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrDuplicateEntry), "唯一约束冲突应映射为 ErrDuplicateEntry")
}
