package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	ordersvc "github.com/luccasmf/pixkeys-backend/internal/orders"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

type stubOrderService struct {
	createInput  *ordersvc.CreateOrderInput
	createResult *ordersvc.CheckoutResult
	createErr    error
	statusView   *ordersvc.StatusView
	statusErr    error
	listResult   []models.Order
	getResult    *models.Order
}

func (s *stubOrderService) CreateOrder(_ context.Context, input ordersvc.CreateOrderInput) (*ordersvc.CheckoutResult, error) {
	s.createInput = &input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.createResult, nil
}

func (s *stubOrderService) GetOrderStatus(context.Context, uuid.UUID) (*ordersvc.StatusView, error) {
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.statusView, nil
}

func (s *stubOrderService) ListResellerOrders(context.Context, uuid.UUID, *enums.OrderStatus, pagination.Params) ([]models.Order, error) {
	return s.listResult, nil
}

func (s *stubOrderService) GetResellerOrder(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	if s.getResult == nil {
		panic("unimplemented")
	}
	return s.getResult, nil
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	productID := uuid.New()
	orderID := uuid.New()
	stub := &stubOrderService{
		createResult: &ordersvc.CheckoutResult{
			Order: &models.Order{
				ID:          orderID,
				Status:      enums.OrderStatusPending,
				Provider:    enums.PaymentProviderAbacatePay,
				TotalAmount: decimal.RequireFromString("59.80"),
			},
			QRCode:    "qr-data",
			CopyPaste: "pix-copy-paste",
		},
	}

	body := `{"product_id":"` + productID.String() + `","quantity":2,"customer_email":"buyer@example.com","provider":"abacatepay"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Checkout(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.createInput == nil {
		t.Fatal("expected CreateOrder to be invoked")
	}
	if stub.createInput.ProductID != productID || stub.createInput.Quantity != 2 {
		t.Fatalf("unexpected input %+v", stub.createInput)
	}
	if stub.createInput.Provider != enums.PaymentProviderAbacatePay {
		t.Fatalf("unexpected provider %s", stub.createInput.Provider)
	}

	var envelope struct {
		Data checkoutResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != orderID {
		t.Fatalf("expected order id %s got %s", orderID, envelope.Data.OrderID)
	}
	if envelope.Data.TotalAmount != "59.80" {
		t.Fatalf("expected total 59.80 got %s", envelope.Data.TotalAmount)
	}
	if envelope.Data.QRCode != "qr-data" || envelope.Data.CopyPaste != "pix-copy-paste" {
		t.Fatalf("expected payment material in response, got %+v", envelope.Data)
	}
}

func TestCheckoutRejectsUnknownProvider(t *testing.T) {
	body := `{"product_id":"` + uuid.NewString() + `","quantity":1,"customer_email":"buyer@example.com","provider":"paypal"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Checkout(&stubOrderService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestCheckoutPropagatesOutOfStock(t *testing.T) {
	stub := &stubOrderService{
		createErr: pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock"),
	}
	body := `{"product_id":"` + uuid.NewString() + `","quantity":5,"customer_email":"buyer@example.com","provider":"pagseguro"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Checkout(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeOutOfStock) {
		t.Fatalf("expected out-of-stock code got %s", payload.Error.Code)
	}
}

func TestOrderStatusPendingHidesGoods(t *testing.T) {
	orderID := uuid.New()
	stub := &stubOrderService{
		statusView: &ordersvc.StatusView{
			OrderID:   orderID,
			Status:    enums.OrderStatusPending,
			QRCode:    "qr",
			CopyPaste: "copy",
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/status", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", orderID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	OrderStatus(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data orderStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != "pending" {
		t.Fatalf("expected pending got %s", envelope.Data.Status)
	}
	if envelope.Data.QRCode != "qr" {
		t.Fatal("expected payment material while pending")
	}
	if len(envelope.Data.Items) != 0 {
		t.Fatal("pending order must not expose delivered goods")
	}
}

func TestOrderStatusPaidExposesGoods(t *testing.T) {
	orderID := uuid.New()
	paidAt := time.Now().UTC()
	stub := &stubOrderService{
		statusView: &ordersvc.StatusView{
			OrderID: orderID,
			Status:  enums.OrderStatusPaid,
			PaidAt:  &paidAt,
			Items: []ordersvc.StatusItem{
				{ProductName: "Key Pack", Quantity: 2, DeliveredPayload: "AAA-111\nBBB-222"},
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String()+"/status", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", orderID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	OrderStatus(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var envelope struct {
		Data orderStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Items) != 1 {
		t.Fatalf("expected one delivered item got %d", len(envelope.Data.Items))
	}
	if envelope.Data.Items[0].DeliveredPayload != "AAA-111\nBBB-222" {
		t.Fatalf("unexpected payload %q", envelope.Data.Items[0].DeliveredPayload)
	}
}

func TestOrderStatusRejectsInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid/status", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", "not-a-uuid")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
	rec := httptest.NewRecorder()
	OrderStatus(&stubOrderService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
