package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"time"
)

type Admin struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`

	Email  string `gorm:"column:email;uniqueIndex" json:"email"` // 邮箱，统一小写，在管理员中唯一
	Name   string `gorm:"column:name" json:"name"`               // 显示名称
	Avatar string `gorm:"column:avatar" json:"avatar,omitempty"`

	Credential `json:"-"`
}

func (a *Admin) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (a *Admin) PrincipalID() uuid.UUID   { return a.ID }
func (a *Admin) PrincipalKind() Kind      { return KindAdmin }
func (a *Admin) PrincipalEmail() string   { return a.Email }
func (a *Admin) DisplayName() string      { return a.Name }
func (a *Admin) PrincipalRole() Role      { return RoleAdmin }
func (a *Admin) Credentials() *Credential { return &a.Credential }
