package resellers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
)

// Repository manages persistence for reseller accounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reseller *models.Reseller) error
	Update(ctx context.Context, reseller *models.Reseller) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Reseller, error)
	GetByEmail(ctx context.Context, email string) (*models.Reseller, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reseller repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reseller *models.Reseller) error {
	return r.db.WithContext(ctx).Create(reseller).Error
}

func (r *repository) Update(ctx context.Context, reseller *models.Reseller) error {
	return r.db.WithContext(ctx).Save(reseller).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Reseller, error) {
	var reseller models.Reseller
	if err := r.db.WithContext(ctx).First(&reseller, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &reseller, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*models.Reseller, error) {
	var reseller models.Reseller
	if err := r.db.WithContext(ctx).First(&reseller, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &reseller, nil
}
