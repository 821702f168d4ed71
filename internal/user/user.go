package user

import (
	"strings"
	"time"
)

// 市场角色。每个用户只属于一个角色，路由层按角色分组授权。
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
	RoleDriver = "driver"
	RoleNGO    = "ngo"
)

// ValidRole 判断角色取值是否合法。
func ValidRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleFarmer, RoleBuyer, RoleDriver, RoleNGO:
		return true
	default:
		return false
	}
}

// User 是 users 表的 GORM 模型。
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	PasswordSalt string    `gorm:"size:64;not null" json:"-"`
	Name         string    `gorm:"size:64" json:"name"`
	Phone        string    `gorm:"size:32" json:"phone"`
	Location     string    `gorm:"size:128" json:"location"`
	Role         string    `gorm:"size:16;index;not null" json:"role"` // farmer / buyer / driver / ngo
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
