package models

import (
	"golang.org/x/crypto/bcrypt"
)

// Tenant 租客
type Tenant struct {
	BaseModel
	Lifecycle
	FullName     string `json:"full_name" gorm:"not null;size:100"`
	Phone        string `json:"phone" gorm:"not null;size:10;index"`
	Email        string `json:"email" gorm:"not null;size:100;index"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`
	Version      uint   `json:"version" gorm:"not null"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// SetPassword 设置密码
func (t *Tenant) SetPassword(password string) error {
	hashed, err := hashPassword(password)
	if err != nil {
		return err
	}
	t.PasswordHash = hashed
	return nil
}

// CheckPassword 验证密码
func (t *Tenant) CheckPassword(password string) bool {
	return checkPassword(t.PasswordHash, password)
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
