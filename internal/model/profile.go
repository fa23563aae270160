package model

import "time"

// 角色
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

// AuthIdentity 认证身份表，对应 auth_identities（凭据，与 profiles 同 id）
type AuthIdentity struct {
	ID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string     `gorm:"type:text;not null"                             json:"email"`
	PasswordHash string     `gorm:"type:text;not null"                             json:"-"`
	LastSignInAt *time.Time `json:"last_sign_in_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (AuthIdentity) TableName() string { return "auth_identities" }

// Profile 员工档案表，对应 profiles
type Profile struct {
	ID                string `gorm:"type:uuid;primaryKey"          json:"id"`
	Email             string `gorm:"type:text;not null"            json:"email"`
	FullName          string `gorm:"type:text;not null"            json:"full_name"`
	Role              string `gorm:"type:text;not null;default:'staff'" json:"role"` // staff | admin
	TotalPoints       int    `gorm:"not null;default:0"            json:"total_points"`
	AvatarColor       string `gorm:"type:text;not null;default:''" json:"avatar_color"`
	PreferredLanguage string `gorm:"type:text;not null;default:'de'" json:"preferred_language"`
	BaseModel
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// IsAdmin 是否管理员
func (p *Profile) IsAdmin() bool { return p.Role == RoleAdmin }
