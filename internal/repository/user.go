package repository

import (
	"context"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// FindByID 根据用户 ID 查找用户。
	// 如果用户不存在，返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)

	// FindByUsername 根据用户名查找用户。
	// 如果用户不存在，返回 ErrUserNotFound。
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByEmail 根据邮箱查找用户（登录使用邮箱）。
	// 如果用户不存在，返回 ErrUserNotFound。
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// Save 保存用户信息。违反唯一约束时返回 ErrDuplicateEntry，
	// 成功时回填数据库生成的 ID 和时间戳。
	Save(ctx context.Context, user *domain.User) error
}
