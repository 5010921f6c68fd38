package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
)

// WalletEntry is one row of the append-only reseller ledger. Credits are
// positive, debits negative; a balance is always the sum of rows.
//
// OrderID carries a unique index so an order can credit the wallet at most
// once no matter how many times fulfillment is retried.
type WalletEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResellerID  uuid.UUID             `gorm:"column:reseller_id;type:uuid;not null;index"`
	Type        enums.WalletEntryType `gorm:"column:type;type:wallet_entry_type;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid;uniqueIndex"`
	Description *string               `gorm:"column:description"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
