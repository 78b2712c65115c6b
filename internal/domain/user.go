package domain

import "time"

// User 表示一个注册用户。
// Password 字段存储的是 bcrypt 哈希，绝不存储明文。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex:idx_username;size:191;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex:idx_email;size:191;not null" json:"email"`
	Password  string    `gorm:"type:text;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
