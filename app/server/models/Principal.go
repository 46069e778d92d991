package models

import (
	"crypto/subtle"
	"github.com/google/uuid"
	"time"
)

// Kind 区分两类可登录身份，同时也是登录响应里的 userType
type Kind string

const (
	KindMember Kind = "user"
	KindAdmin  Kind = "admin"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAlumni  Role = "alumni"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAlumni, RoleStudent:
		return true
	}
	return false
}

// Credential 是两类身份共用的认证字段，任何情况下都不会出现在 JSON 中
type Credential struct {
	Password        string     `gorm:"column:password" json:"-"`          // 密码，使用 argon2id 储存
	RefreshToken    *string    `gorm:"column:refresh_token" json:"-"`     // 当前唯一有效的刷新令牌，NULL 表示没有会话
	ResetOTP        *string    `gorm:"column:reset_otp" json:"-"`         // 找回密码的一次性验证码
	ResetOTPExpires *time.Time `gorm:"column:reset_otp_expires" json:"-"` // 验证码过期时间
}

// Credential 列名，更新资料时需要排除
var CredentialColumns = []string{"password", "refresh_token", "reset_otp", "reset_otp_expires"}

// Principal is implemented by *Member and *Admin.
type Principal interface {
	PrincipalID() uuid.UUID
	PrincipalKind() Kind
	PrincipalEmail() string
	DisplayName() string
	PrincipalRole() Role
	Credentials() *Credential
}

// NewPrincipal returns an empty record of the given kind, for decoding.
func NewPrincipal(kind Kind) Principal {
	if kind == KindAdmin {
		return &Admin{}
	}
	return &Member{}
}

// IsOTPValid reports whether code matches the recovery code stored on p and that code has not
// expired at now. Both the verify and the reset step go through here.
func IsOTPValid(p Principal, code string, now time.Time) bool {
	if p == nil || code == "" {
		return false
	}

	cred := p.Credentials()
	if cred.ResetOTP == nil || cred.ResetOTPExpires == nil {
		return false
	}

	if !cred.ResetOTPExpires.After(now) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(*cred.ResetOTP), []byte(code)) == 1
}
