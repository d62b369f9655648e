package models

import "time"

// Admin 管理员账号
type Admin struct {
	BaseModel
	Username     string     `json:"username" gorm:"unique;not null;size:50;index"`
	PasswordHash string     `json:"-" gorm:"not null;size:255"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// TableName 表名
func (a *Admin) TableName() string {
	return "admins"
}

// SetPassword 设置密码
func (a *Admin) SetPassword(password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	a.PasswordHash = hashed
	return nil
}

// CheckPassword 验证密码
func (a *Admin) CheckPassword(password string) bool {
	return checkPassword(a.PasswordHash, password)
}
