package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/internal/stock"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

// Service defines product catalog operations for vendors and the public
// checkout page.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, input UpdateProductInput) (*models.Product, error)
	GetOwnedProduct(ctx context.Context, resellerID, productID uuid.UUID) (*models.Product, error)
	// DeleteProduct retires a listing. Order history keeps pointing at the
	// product row, so this deactivates rather than removes.
	DeleteProduct(ctx context.Context, resellerID, productID uuid.UUID) error
	ListProducts(ctx context.Context, resellerID uuid.UUID) ([]ProductWithStock, error)
	// GetPublicProduct returns an active product for the checkout page.
	GetPublicProduct(ctx context.Context, productID uuid.UUID) (*models.Product, int64, error)
	// ReplaceStock swaps the unconsumed pool with the pasted text.
	ReplaceStock(ctx context.Context, resellerID, productID uuid.UUID, poolText string) (int, error)
	// AppendStock adds pasted lines to the back of the pool.
	AppendStock(ctx context.Context, resellerID, productID uuid.UUID, poolText string) (int, error)
	// RenderStock returns the unconsumed pool as editable text.
	RenderStock(ctx context.Context, resellerID, productID uuid.UUID) (string, error)
}

// CreateProductInput captures a new listing.
type CreateProductInput struct {
	ResellerID           uuid.UUID
	Name                 string
	Description          string
	Price                decimal.Decimal
	Tags                 []string
	DeliveryInstructions string
	InitialStock         string
}

// UpdateProductInput captures listing changes. Nil fields stay untouched.
type UpdateProductInput struct {
	ResellerID           uuid.UUID
	ProductID            uuid.UUID
	Name                 *string
	Description          *string
	Price                *decimal.Decimal
	Tags                 []string
	DeliveryInstructions *string
	IsActive             *bool
}

// ProductWithStock pairs a listing with its live pool size.
type ProductWithStock struct {
	Product   models.Product
	Available int64
}

type service struct {
	repo      Repository
	stockRepo stock.Repository
}

// NewService wires a product service with its repositories.
func NewService(repo Repository, stockRepo stock.Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &service{repo: repo, stockRepo: stockRepo}, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	if input.ResellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
	}

	product := &models.Product{
		ResellerID: input.ResellerID,
		Name:       name,
		Price:      input.Price,
		Tags:       pq.StringArray(normalizeTags(input.Tags)),
		IsActive:   true,
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		product.Description = &desc
	}
	if instructions := strings.TrimSpace(input.DeliveryInstructions); instructions != "" {
		product.DeliveryInstructions = &instructions
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}

	if lines := stock.Lines(input.InitialStock); len(lines) > 0 {
		if err := s.stockRepo.Replace(ctx, product.ID, lines); err != nil {
			return nil, err
		}
	}
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, input UpdateProductInput) (*models.Product, error) {
	product, err := s.GetOwnedProduct(ctx, input.ResellerID, input.ProductID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = name
	}
	if input.Description != nil {
		if desc := strings.TrimSpace(*input.Description); desc != "" {
			product.Description = &desc
		} else {
			product.Description = nil
		}
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be positive")
		}
		product.Price = *input.Price
	}
	if input.Tags != nil {
		product.Tags = pq.StringArray(normalizeTags(input.Tags))
	}
	if input.DeliveryInstructions != nil {
		if instructions := strings.TrimSpace(*input.DeliveryInstructions); instructions != "" {
			product.DeliveryInstructions = &instructions
		} else {
			product.DeliveryInstructions = nil
		}
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) GetOwnedProduct(ctx context.Context, resellerID, productID uuid.UUID) (*models.Product, error) {
	if resellerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id and product id are required")
	}
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if product.ResellerID != resellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to reseller")
	}
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, resellerID, productID uuid.UUID) error {
	product, err := s.GetOwnedProduct(ctx, resellerID, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return nil
	}
	product.IsActive = false
	return s.repo.Update(ctx, product)
}

func (s *service) ListProducts(ctx context.Context, resellerID uuid.UUID) ([]ProductWithStock, error) {
	if resellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	listings, err := s.repo.ListByReseller(ctx, resellerID)
	if err != nil {
		return nil, err
	}

	result := make([]ProductWithStock, 0, len(listings))
	for _, product := range listings {
		available, err := s.stockRepo.Available(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, ProductWithStock{Product: product, Available: available})
	}
	return result, nil
}

func (s *service) GetPublicProduct(ctx context.Context, productID uuid.UUID) (*models.Product, int64, error) {
	if productID == uuid.Nil {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, 0, err
	}
	if !product.IsActive {
		return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	available, err := s.stockRepo.Available(ctx, product.ID)
	if err != nil {
		return nil, 0, err
	}
	return product, available, nil
}

func (s *service) ReplaceStock(ctx context.Context, resellerID, productID uuid.UUID, poolText string) (int, error) {
	if _, err := s.GetOwnedProduct(ctx, resellerID, productID); err != nil {
		return 0, err
	}
	lines := stock.Lines(poolText)
	if err := s.stockRepo.Replace(ctx, productID, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (s *service) AppendStock(ctx context.Context, resellerID, productID uuid.UUID, poolText string) (int, error) {
	if _, err := s.GetOwnedProduct(ctx, resellerID, productID); err != nil {
		return 0, err
	}
	lines := stock.Lines(poolText)
	if len(lines) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no stock lines provided")
	}
	if err := s.stockRepo.Append(ctx, productID, lines); err != nil {
		return 0, err
	}
	return len(lines), nil
}

func (s *service) RenderStock(ctx context.Context, resellerID, productID uuid.UUID) (string, error) {
	if _, err := s.GetOwnedProduct(ctx, resellerID, productID); err != nil {
		return "", err
	}
	items, err := s.stockRepo.ListAvailable(ctx, productID)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, item.Payload)
	}
	return stock.Render(lines), nil
}

func normalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.ToLower(strings.TrimSpace(tag))
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
