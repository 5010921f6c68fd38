package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

// Repository manages persistence for stock pools.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Replace drops the unconsumed pool for a product and loads the given
	// lines in order. Consumed rows are untouched so delivery history stays.
	Replace(ctx context.Context, productID uuid.UUID, lines []string) error
	// Append adds lines to the back of the pool.
	Append(ctx context.Context, productID uuid.UUID, lines []string) error
	// Available counts unconsumed lines.
	Available(ctx context.Context, productID uuid.UUID) (int64, error)
	// ListAvailable returns the unconsumed pool in FIFO order.
	ListAvailable(ctx context.Context, productID uuid.UUID) ([]models.StockItem, error)
	// Claim marks the first quantity unconsumed lines as delivered to the
	// given order item. It fails with CodeOutOfStock when the pool cannot
	// cover the claim; nothing is consumed in that case.
	Claim(ctx context.Context, productID, orderItemID uuid.UUID, quantity int) ([]models.StockItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Replace(ctx context.Context, productID uuid.UUID, lines []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("product_id = ? AND order_item_id IS NULL", productID).
			Delete(&models.StockItem{}).Error; err != nil {
			return err
		}
		return insertLines(tx, productID, lines, 0)
	})
}

func (r *repository) Append(ctx context.Context, productID uuid.UUID, lines []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition int64
		if err := tx.Model(&models.StockItem{}).
			Where("product_id = ?", productID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		return insertLines(tx, productID, lines, maxPosition)
	})
}

func (r *repository) Available(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.StockItem{}).
		Where("product_id = ? AND order_item_id IS NULL", productID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListAvailable(ctx context.Context, productID uuid.UUID) ([]models.StockItem, error) {
	var items []models.StockItem
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND order_item_id IS NULL", productID).
		Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Claim(ctx context.Context, productID, orderItemID uuid.UUID, quantity int) ([]models.StockItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claim quantity must be positive")
	}

	var claimed []models.StockItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var candidates []models.StockItem
		if err := tx.
			Where("product_id = ? AND order_item_id IS NULL", productID).
			Order("position ASC").
			Limit(quantity).
			Find(&candidates).Error; err != nil {
			return err
		}
		if len(candidates) < quantity {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": productID.String(),
					"requested":  quantity,
					"available":  len(candidates),
				})
		}

		ids := make([]uuid.UUID, 0, len(candidates))
		for _, item := range candidates {
			ids = append(ids, item.ID)
		}

		now := time.Now().UTC()
		// The order_item_id IS NULL guard makes the claim safe under
		// concurrent fulfillment: a row grabbed by a rival transaction no
		// longer matches, the affected count comes up short, and the whole
		// transaction rolls back.
		result := tx.Model(&models.StockItem{}).
			Where("id IN ? AND order_item_id IS NULL", ids).
			Updates(map[string]any{
				"order_item_id": orderItemID,
				"consumed_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(quantity) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "stock claim lost a concurrent race")
		}

		for i := range candidates {
			candidates[i].OrderItemID = &orderItemID
			candidates[i].ConsumedAt = &now
		}
		claimed = candidates
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func insertLines(tx *gorm.DB, productID uuid.UUID, lines []string, startPosition int64) error {
	if len(lines) == 0 {
		return nil
	}
	items := make([]models.StockItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, models.StockItem{
			ProductID: productID,
			Position:  startPosition + int64(i) + 1,
			Payload:   line,
		})
	}
	return tx.CreateInBatches(items, 500).Error
}
