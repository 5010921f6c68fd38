package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/internal/payments"
	"github.com/luccasmf/pixkeys-backend/internal/stock"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

// ProductLookup is the slice of the product surface checkout needs.
type ProductLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service defines order lifecycle operations outside of fulfillment.
type Service interface {
	// CreateOrder runs the public checkout: price the cart, issue the PIX
	// charge, and persist the pending order.
	CreateOrder(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error)
	// GetOrderStatus serves the public status page a customer polls after
	// paying. Delivered goods appear only once the order is paid.
	GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*StatusView, error)
	ListResellerOrders(ctx context.Context, resellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error)
	GetResellerOrder(ctx context.Context, resellerID, orderID uuid.UUID) (*models.Order, error)
}

// CreateOrderInput is the public checkout request.
type CreateOrderInput struct {
	ProductID        uuid.UUID
	Quantity         int
	CustomerEmail    string
	CustomerWhatsApp string
	Provider         enums.PaymentProvider
}

// CheckoutResult carries what the checkout page renders: the order plus the
// PIX payment material.
type CheckoutResult struct {
	Order     *models.Order
	QRCode    string
	CopyPaste string
}

// StatusView is the customer-facing order state.
type StatusView struct {
	OrderID     uuid.UUID
	Status      enums.OrderStatus
	PaidAt      *time.Time
	DeliveredAt *time.Time
	QRCode      string
	CopyPaste   string
	Items       []StatusItem
}

// StatusItem is one delivered line group on the status page.
type StatusItem struct {
	ProductName      string
	Quantity         int
	DeliveredPayload string
}

type service struct {
	repo      Repository
	products  ProductLookup
	stockRepo stock.Repository
	gateways  *payments.Registry
	logg      *logger.Logger
}

// NewService wires the order service.
func NewService(repo Repository, productLookup ProductLookup, stockRepo stock.Repository, gateways *payments.Registry, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if productLookup == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("payment gateway registry required")
	}
	return &service{
		repo:      repo,
		products:  productLookup,
		stockRepo: stockRepo,
		gateways:  gateways,
		logg:      logg,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*CheckoutResult, error) {
	email := strings.TrimSpace(strings.ToLower(input.CustomerEmail))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "missing customer email")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Provider.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment provider")
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	available, err := s.stockRepo.Available(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if available < int64(input.Quantity) {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
			WithDetails(map[string]any{
				"requested": input.Quantity,
				"available": available,
			})
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))

	gateway, err := s.gateways.ByName(input.Provider)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ResellerID:    product.ResellerID,
		CustomerEmail: email,
		Status:        enums.OrderStatusPending,
		Provider:      input.Provider,
		TotalAmount:   total,
		Items: []models.OrderItem{{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    input.Quantity,
			UnitPrice:   product.Price,
		}},
	}
	if whatsapp := strings.TrimSpace(input.CustomerWhatsApp); whatsapp != "" {
		order.CustomerWhatsApp = &whatsapp
	}
	// The charge references the order, so mint the ID up front.
	order.ID = uuid.New()

	charge, err := gateway.CreateCharge(ctx, payments.CreateChargeInput{
		OrderID:       order.ID,
		Amount:        total,
		CustomerEmail: email,
		Description:   fmt.Sprintf("%dx %s", input.Quantity, product.Name),
	})
	if err != nil {
		return nil, err
	}

	order.ProviderBillingID = charge.ProviderBillingID
	if charge.QRCode != "" {
		qr := charge.QRCode
		order.PixQRCode = &qr
	}
	if charge.CopyPaste != "" {
		cp := charge.CopyPaste
		order.PixCopyPaste = &cp
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "checkout created pending order")
	}

	return &CheckoutResult{
		Order:     order,
		QRCode:    charge.QRCode,
		CopyPaste: charge.CopyPaste,
	}, nil
}

func (s *service) GetOrderStatus(ctx context.Context, orderID uuid.UUID) (*StatusView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}

	view := &StatusView{
		OrderID:     order.ID,
		Status:      order.Status,
		PaidAt:      order.PaidAt,
		DeliveredAt: order.DeliveredAt,
	}
	if order.Status == enums.OrderStatusPending {
		if order.PixQRCode != nil {
			view.QRCode = *order.PixQRCode
		}
		if order.PixCopyPaste != nil {
			view.CopyPaste = *order.PixCopyPaste
		}
		return view, nil
	}

	for _, item := range order.Items {
		statusItem := StatusItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
		}
		if item.DeliveredPayload != nil {
			statusItem.DeliveredPayload = *item.DeliveredPayload
		}
		view.Items = append(view.Items, statusItem)
	}
	return view, nil
}

func (s *service) ListResellerOrders(ctx context.Context, resellerID uuid.UUID, status *enums.OrderStatus, params pagination.Params) ([]models.Order, error) {
	if resellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	if status != nil && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	return s.repo.ListByReseller(ctx, resellerID, status, params)
}

func (s *service) GetResellerOrder(ctx context.Context, resellerID, orderID uuid.UUID) (*models.Order, error) {
	if resellerID == uuid.Nil || orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id and order id are required")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if order.ResellerID != resellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to reseller")
	}
	return order, nil
}
