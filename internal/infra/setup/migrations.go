package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/itzsudipta/SwiftChat/internal/domain"
)

// MigrateDB 迁移数据库模式。
// users 表的 username/email 唯一索引和 messages 表的 room_id 索引
// 都由模型上的 GORM tag 声明，AutoMigrate 负责创建。
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Message{}); err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
