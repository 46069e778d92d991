package models

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"time"
)

type Member struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`

	// 基础信息
	Email    string `gorm:"column:email;uniqueIndex" json:"email"`       // 邮箱，统一小写，全局唯一
	Username string `gorm:"column:username;uniqueIndex" json:"username"` // 用户名，全局唯一，作为显示名称
	Name     string `gorm:"column:name" json:"name"`                     // 真实姓名
	Role     Role   `gorm:"column:role;index" json:"role"`               // admin / alumni / student

	// 资料
	Avatar         string          `gorm:"column:avatar" json:"avatar,omitempty"`                  // 头像地址（由外部媒体服务托管）
	Bio            string          `gorm:"column:bio" json:"bio,omitempty"`                        // 个人简介
	Company        string          `gorm:"column:company" json:"company,omitempty"`                // 就职公司
	JobTitle       string          `gorm:"column:job_title" json:"jobTitle,omitempty"`             // 职位
	GraduationYear int             `gorm:"column:graduation_year" json:"graduationYear,omitempty"` // 毕业年份
	Skills         pq.StringArray  `gorm:"column:skills;type:text[]" json:"skills,omitempty"`      // 技能标签
	Extra          json.RawMessage `gorm:"column:extra;type:jsonb" json:"extra,omitempty"`         // 其他自由字段（JSONB 存储方便扩展）

	Credential `json:"-"`
}

func (m *Member) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *Member) PrincipalID() uuid.UUID   { return m.ID }
func (m *Member) PrincipalKind() Kind      { return KindMember }
func (m *Member) PrincipalEmail() string   { return m.Email }
func (m *Member) DisplayName() string      { return m.Username }
func (m *Member) PrincipalRole() Role      { return m.Role }
func (m *Member) Credentials() *Credential { return &m.Credential }
