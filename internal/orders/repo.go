package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

// Repository manages persistence for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByProviderBillingID(ctx context.Context, provider enums.PaymentProvider, billingID string) (*models.Order, error)
	ListByReseller(ctx context.Context, resellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
	// ListPending returns pending orders oldest first, capped at limit.
	ListPending(ctx context.Context, limit int) ([]models.Order, error)
	// MarkPaid flips pending to paid exactly once. The boolean reports
	// whether this call won the transition; false means some other path
	// already flipped it.
	MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)
	SetDelivered(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) error
	SetItemPayload(ctx context.Context, itemID uuid.UUID, payload string) error
	// DeleteExpiredPending removes pending orders created before the cutoff.
	// Items and stock references cascade in the schema.
	DeleteExpiredPending(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByProviderBillingID(ctx context.Context, provider enums.PaymentProvider, billingID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "provider = ? AND provider_billing_id = ?", provider, billingID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByReseller(ctx context.Context, resellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("reseller_id = ?", resellerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListPending(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":  enums.OrderStatusPaid,
			"paid_at": paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) SetDelivered(ctx context.Context, orderID uuid.UUID, deliveredAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("delivered_at", deliveredAt).Error
}

func (r *repository) SetItemPayload(ctx context.Context, itemID uuid.UUID, payload string) error {
	return r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Update("delivered_payload", payload).Error
}

func (r *repository) DeleteExpiredPending(ctx context.Context, cutoff time.Time) (int64, error) {
	// Items cascade through the schema's foreign keys. The subquery keeps
	// the delete portable across Postgres and the sqlite test databases.
	itemResult := r.db.WithContext(ctx).
		Where("order_id IN (?)", r.db.Model(&models.Order{}).
			Select("id").
			Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff)).
		Delete(&models.OrderItem{})
	if itemResult.Error != nil {
		return 0, itemResult.Error
	}

	result := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Delete(&models.Order{})
	return result.RowsAffected, result.Error
}
