package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
)

// WithdrawalRequest is a reseller's ask to cash out wallet balance to a PIX
// key. The fee is captured at request time so later rate changes do not move
// already-filed requests.
type WithdrawalRequest struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResellerID uuid.UUID              `gorm:"column:reseller_id;type:uuid;not null;index"`
	Amount     decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	FeeAmount  decimal.Decimal        `gorm:"column:fee_amount;type:numeric(12,2);not null"`
	NetAmount  decimal.Decimal        `gorm:"column:net_amount;type:numeric(12,2);not null"`
	PixKey     string                 `gorm:"column:pix_key;not null"`
	Status     enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	ReviewedBy *uuid.UUID             `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time             `gorm:"column:reviewed_at"`
	Notes      *string                `gorm:"column:notes"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
