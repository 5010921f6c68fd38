package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/internal/stock"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Product{}, &models.StockItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(gdb), stock.NewRepository(gdb))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateProductWithInitialStock(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	resellerID := uuid.New()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		ResellerID:   resellerID,
		Name:         "Streaming Account",
		Price:        decimal.RequireFromString("19.90"),
		Tags:         []string{"Streaming", " accounts "},
		InitialStock: "user1:pass1\nuser2:pass2\n",
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if len(product.Tags) != 2 || product.Tags[0] != "streaming" || product.Tags[1] != "accounts" {
		t.Fatalf("unexpected tags: %v", product.Tags)
	}

	listings, err := svc.ListProducts(ctx, resellerID)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 product, got %d", len(listings))
	}
	if listings[0].Available != 2 {
		t.Fatalf("expected 2 stock lines, got %d", listings[0].Available)
	}
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{
		ResellerID: uuid.New(),
		Name:       "  ",
		Price:      decimal.RequireFromString("10.00"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CreateProduct(ctx, CreateProductInput{
		ResellerID: uuid.New(),
		Name:       "Free thing",
		Price:      decimal.Zero,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for zero price, got %v", err)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		ResellerID: owner,
		Name:       "Gift Card",
		Price:      decimal.RequireFromString("50.00"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	_, err = svc.GetOwnedProduct(ctx, uuid.New(), product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	_, err = svc.ReplaceStock(ctx, uuid.New(), product.ID, "line")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden error on stock write, got %v", err)
	}
}

func TestDeleteProductDeactivates(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		ResellerID: owner,
		Name:       "VPN Access",
		Price:      decimal.RequireFromString("9.90"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if err := svc.DeleteProduct(ctx, owner, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	// The row survives for order history but leaves the storefront.
	kept, err := svc.GetOwnedProduct(ctx, owner, product.ID)
	if err != nil {
		t.Fatalf("get owned after delete: %v", err)
	}
	if kept.IsActive {
		t.Fatal("expected product to be deactivated")
	}
	_, _, err = svc.GetPublicProduct(ctx, product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected public 404 after delete, got %v", err)
	}

	if err := svc.DeleteProduct(ctx, uuid.New(), product.ID); err == nil {
		t.Fatal("expected foreign delete to fail")
	}
}

func TestStockRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	resellerID := uuid.New()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		ResellerID: resellerID,
		Name:       "VPN Voucher",
		Price:      decimal.RequireFromString("9.90"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	count, err := svc.ReplaceStock(ctx, resellerID, product.ID, "v-1\nv-2\nv-3")
	if err != nil {
		t.Fatalf("replace stock: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 lines loaded, got %d", count)
	}

	added, err := svc.AppendStock(ctx, resellerID, product.ID, "v-4")
	if err != nil {
		t.Fatalf("append stock: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 line appended, got %d", added)
	}

	text, err := svc.RenderStock(ctx, resellerID, product.ID)
	if err != nil {
		t.Fatalf("render stock: %v", err)
	}
	if text != "v-1\nv-2\nv-3\nv-4" {
		t.Fatalf("unexpected pool text: %q", text)
	}
}

func TestGetPublicProductHidesInactive(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()
	resellerID := uuid.New()

	product, err := svc.CreateProduct(ctx, CreateProductInput{
		ResellerID: resellerID,
		Name:       "Game Key",
		Price:      decimal.RequireFromString("59.90"),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	inactive := false
	if _, err := svc.UpdateProduct(ctx, UpdateProductInput{
		ResellerID: resellerID,
		ProductID:  product.ID,
		IsActive:   &inactive,
	}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, _, err = svc.GetPublicProduct(ctx, product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for inactive product, got %v", err)
	}
}
