package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
)

// Order is a customer purchase. Orders are created pending with a PIX charge
// attached and flip to paid exactly once, through the conditional update in
// the orders repository.
type Order struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ResellerID        uuid.UUID             `gorm:"column:reseller_id;type:uuid;not null;index"`
	CustomerEmail     string                `gorm:"column:customer_email;not null"`
	CustomerWhatsApp  *string               `gorm:"column:customer_whatsapp"`
	Status            enums.OrderStatus     `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Provider          enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null"`
	ProviderBillingID string                `gorm:"column:provider_billing_id;not null;index"`
	PixQRCode         *string               `gorm:"column:pix_qr_code"`
	PixCopyPaste      *string               `gorm:"column:pix_copy_paste"`
	TotalAmount       decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaidAt            *time.Time            `gorm:"column:paid_at"`
	DeliveredAt       *time.Time            `gorm:"column:delivered_at"`
	Items             []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
