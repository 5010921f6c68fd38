package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product represents a digital-goods listing backed by a FIFO stock pool.
type Product struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResellerID           uuid.UUID       `gorm:"column:reseller_id;type:uuid;not null"`
	Name                 string          `gorm:"column:name;not null"`
	Description          *string         `gorm:"column:description"`
	Price                decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Tags                 pq.StringArray  `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	DeliveryInstructions *string         `gorm:"column:delivery_instructions"`
	IsActive             bool            `gorm:"column:is_active;not null;default:true"`
	StockItems           []StockItem     `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
