package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
)

// Reseller is a vendor account. Admin accounts live in the same table with
// an elevated role.
type Reseller struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string          `gorm:"column:name;not null"`
	Email          string          `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash   string          `gorm:"column:password_hash;not null"`
	Role           enums.ActorRole `gorm:"column:role;type:actor_role;not null;default:'reseller'"`
	WhatsAppNumber *string         `gorm:"column:whatsapp_number"`
	PixKey         *string         `gorm:"column:pix_key"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	Products       []Product       `gorm:"foreignKey:ResellerID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
