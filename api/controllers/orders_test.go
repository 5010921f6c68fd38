package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/api/middleware"
	"github.com/luccasmf/pixkeys-backend/internal/fulfillment"
	"github.com/luccasmf/pixkeys-backend/internal/reconcile"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

type stubReconcileService struct {
	actor      *reconcile.Actor
	orderID    uuid.UUID
	outcome    *fulfillment.Outcome
	approveErr error
}

func (s *stubReconcileService) HandleWebhook(context.Context, enums.PaymentProvider, []byte, string) error {
	panic("unimplemented")
}

func (s *stubReconcileService) PollPending(context.Context) (int, error) {
	panic("unimplemented")
}

func (s *stubReconcileService) ApproveManually(_ context.Context, actor reconcile.Actor, orderID uuid.UUID) (*fulfillment.Outcome, error) {
	s.actor = &actor
	s.orderID = orderID
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	return s.outcome, nil
}

func approveRequest(resellerID uuid.UUID, role enums.ActorRole, orderID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/orders/"+orderID+"/approve", nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", orderID)
	ctx := middleware.WithResellerID(context.Background(), resellerID.String())
	ctx = middleware.WithRole(ctx, string(role))
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestVendorApproveOrderDelivers(t *testing.T) {
	resellerID := uuid.New()
	orderID := uuid.New()
	stub := &stubReconcileService{outcome: &fulfillment.Outcome{Delivered: true, Lines: []string{"KEY-1", "KEY-2"}}}

	rec := httptest.NewRecorder()
	VendorApproveOrder(stub, testLogger()).ServeHTTP(rec, approveRequest(resellerID, enums.ActorRoleReseller, orderID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.actor == nil || stub.actor.ResellerID != resellerID {
		t.Fatalf("expected actor %s got %+v", resellerID, stub.actor)
	}
	if stub.actor.Role != enums.ActorRoleReseller {
		t.Fatalf("expected reseller role got %s", stub.actor.Role)
	}
	if stub.orderID != orderID {
		t.Fatalf("expected order %s got %s", orderID, stub.orderID)
	}

	var envelope struct {
		Data approveOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Delivered {
		t.Fatal("expected delivered=true")
	}
	if envelope.Data.Status != "paid" {
		t.Fatalf("expected status paid, got %q", envelope.Data.Status)
	}
	if envelope.Data.DeliveredContent != "KEY-1\nKEY-2" {
		t.Fatalf("unexpected delivered content %q", envelope.Data.DeliveredContent)
	}
}

func TestVendorApproveOrderReplayReturnsContent(t *testing.T) {
	stub := &stubReconcileService{
		outcome: &fulfillment.Outcome{AlreadyFulfilled: true, Lines: []string{"KEY-1"}},
	}

	rec := httptest.NewRecorder()
	VendorApproveOrder(stub, testLogger()).ServeHTTP(rec, approveRequest(uuid.New(), enums.ActorRoleReseller, uuid.NewString()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data approveOrderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Delivered {
		t.Fatal("replay must not report a fresh delivery")
	}
	if envelope.Data.DeliveredContent != "KEY-1" {
		t.Fatalf("expected the original content back, got %q", envelope.Data.DeliveredContent)
	}
}

func TestVendorApproveOrderForbidden(t *testing.T) {
	stub := &stubReconcileService{
		approveErr: pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to reseller"),
	}

	rec := httptest.NewRecorder()
	VendorApproveOrder(stub, testLogger()).ServeHTTP(rec, approveRequest(uuid.New(), enums.ActorRoleReseller, uuid.NewString()))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestVendorApproveOrderRejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	VendorApproveOrder(&stubReconcileService{}, testLogger()).ServeHTTP(rec, approveRequest(uuid.New(), enums.ActorRoleReseller, "nope"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminApproveOrderCarriesAdminRole(t *testing.T) {
	stub := &stubReconcileService{outcome: &fulfillment.Outcome{Delivered: true}}

	rec := httptest.NewRecorder()
	AdminApproveOrder(stub, testLogger()).ServeHTTP(rec, approveRequest(uuid.New(), enums.ActorRoleAdmin, uuid.NewString()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if stub.actor == nil || stub.actor.Role != enums.ActorRoleAdmin {
		t.Fatalf("expected admin actor got %+v", stub.actor)
	}
}

func TestVendorGetOrderBuildsWhatsAppLink(t *testing.T) {
	resellerID := uuid.New()
	orderID := uuid.New()
	whatsapp := "(11) 98765-4321"
	payload := "KEY-1\nKEY-2"
	deliveredAt := time.Now().UTC()
	stub := &stubOrderService{
		getResult: &models.Order{
			ID:               orderID,
			ResellerID:       resellerID,
			CustomerEmail:    "buyer@example.com",
			CustomerWhatsApp: &whatsapp,
			Status:           enums.OrderStatusPaid,
			Provider:         enums.PaymentProviderAbacatePay,
			TotalAmount:      decimal.RequireFromString("10.00"),
			DeliveredAt:      &deliveredAt,
			Items: []models.OrderItem{
				{ProductName: "Key pack", Quantity: 2, UnitPrice: decimal.RequireFromString("5.00"), DeliveredPayload: &payload},
			},
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/orders/"+orderID.String(), nil)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", orderID.String())
	ctx := middleware.WithResellerID(context.Background(), resellerID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	rec := httptest.NewRecorder()
	VendorGetOrder(stub, testLogger()).ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(envelope.Data.WhatsAppLink, "https://wa.me/5511987654321?text=") {
		t.Fatalf("unexpected whatsapp link %q", envelope.Data.WhatsAppLink)
	}
	if !strings.Contains(envelope.Data.WhatsAppLink, "KEY-1") {
		t.Fatalf("link must carry delivered lines, got %q", envelope.Data.WhatsAppLink)
	}
}

func TestVendorListOrdersPagination(t *testing.T) {
	resellerID := uuid.New()
	// 26 rows back means one page of 25 plus the buffer row.
	now := time.Now().UTC()
	var orders []models.Order
	for i := 0; i < 26; i++ {
		orders = append(orders, models.Order{
			ID:          uuid.New(),
			ResellerID:  resellerID,
			Status:      enums.OrderStatusPaid,
			Provider:    enums.PaymentProviderAbacatePay,
			TotalAmount: decimal.RequireFromString("10.00"),
			CreatedAt:   now.Add(-time.Duration(i) * time.Minute),
		})
	}
	stub := &stubOrderService{listResult: orders}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/orders", nil)
	req = req.WithContext(middleware.WithResellerID(context.Background(), resellerID.String()))
	rec := httptest.NewRecorder()
	VendorListOrders(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			Orders     []orderResponse `json:"orders"`
			NextCursor string          `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 25 {
		t.Fatalf("expected 25 orders got %d", len(envelope.Data.Orders))
	}
	if envelope.Data.NextCursor == "" {
		t.Fatal("expected next_cursor when more rows exist")
	}
}

func TestVendorListOrdersRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/orders?status=refunded", nil)
	req = req.WithContext(middleware.WithResellerID(context.Background(), uuid.NewString()))
	rec := httptest.NewRecorder()
	VendorListOrders(&stubOrderService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
