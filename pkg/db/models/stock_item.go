package models

import (
	"time"

	"github.com/google/uuid"
)

// StockItem is one deliverable line of a product's stock pool. Position
// preserves the order the vendor pasted the lines in; delivery always claims
// the lowest unconsumed positions first.
type StockItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID   uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	Position    int64      `gorm:"column:position;not null"`
	Payload     string     `gorm:"column:payload;not null"`
	OrderItemID *uuid.UUID `gorm:"column:order_item_id;type:uuid;index"`
	ConsumedAt  *time.Time `gorm:"column:consumed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
