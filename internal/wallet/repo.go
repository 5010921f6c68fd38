package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

// Repository manages persistence for the append-only wallet ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.WalletEntry) error
	// LockReseller takes the reseller row lock that serializes wallet
	// mutations for one reseller. Only meaningful inside a transaction.
	LockReseller(ctx context.Context, resellerID uuid.UUID) error
	Balance(ctx context.Context, resellerID uuid.UUID) (decimal.Decimal, error)
	ListByReseller(ctx context.Context, resellerID uuid.UUID, params pagination.Params) ([]models.WalletEntry, error)
	HasOrderCredit(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.WalletEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) LockReseller(ctx context.Context, resellerID uuid.UUID) error {
	query := r.db.WithContext(ctx).Model(&models.Reseller{})
	// sqlite rejects FOR UPDATE and serializes writers on its own, so the
	// locking clause is postgres-only.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var locked struct{ ID uuid.UUID }
	return query.Where("id = ?", resellerID).Select("id").Scan(&locked).Error
}

func (r *repository) Balance(ctx context.Context, resellerID uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&models.WalletEntry{}).
		Where("reseller_id = ?", resellerID).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *repository) ListByReseller(ctx context.Context, resellerID uuid.UUID, params pagination.Params) ([]models.WalletEntry, error) {
	query := r.db.WithContext(ctx).
		Where("reseller_id = ?", resellerID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

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

	var entries []models.WalletEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) HasOrderCredit(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WalletEntry{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	return count > 0, err
}
