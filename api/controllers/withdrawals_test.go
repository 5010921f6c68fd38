package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/api/middleware"
	withdrawalsvc "github.com/luccasmf/pixkeys-backend/internal/withdrawals"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

type stubWithdrawalService struct {
	requestInput *withdrawalsvc.RequestInput
	requestRes   *models.WithdrawalRequest
	requestErr   error

	approvedID uuid.UUID
	rejectedID uuid.UUID
	notes      string
	reviewRes  *models.WithdrawalRequest
}

func (s *stubWithdrawalService) Request(_ context.Context, input withdrawalsvc.RequestInput) (*models.WithdrawalRequest, error) {
	s.requestInput = &input
	if s.requestErr != nil {
		return nil, s.requestErr
	}
	return s.requestRes, nil
}

func (s *stubWithdrawalService) ListMine(context.Context, uuid.UUID) ([]models.WithdrawalRequest, error) {
	return nil, nil
}

func (s *stubWithdrawalService) ListPending(context.Context) ([]models.WithdrawalRequest, error) {
	return nil, nil
}

func (s *stubWithdrawalService) Approve(_ context.Context, _, requestID uuid.UUID, notes string) (*models.WithdrawalRequest, error) {
	s.approvedID = requestID
	s.notes = notes
	return s.reviewRes, nil
}

func (s *stubWithdrawalService) Reject(_ context.Context, _, requestID uuid.UUID, notes string) (*models.WithdrawalRequest, error) {
	s.rejectedID = requestID
	s.notes = notes
	return s.reviewRes, nil
}

func TestVendorRequestWithdrawal(t *testing.T) {
	resellerID := uuid.New()
	stub := &stubWithdrawalService{
		requestRes: &models.WithdrawalRequest{
			ID:         uuid.New(),
			ResellerID: resellerID,
			Amount:     decimal.RequireFromString("100.00"),
			FeeAmount:  decimal.RequireFromString("5.00"),
			NetAmount:  decimal.RequireFromString("95.00"),
			PixKey:     "pix@example.com",
			Status:     enums.WithdrawalStatusPending,
		},
	}

	body := `{"amount":"100.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(body))
	req = req.WithContext(middleware.WithResellerID(context.Background(), resellerID.String()))
	rec := httptest.NewRecorder()
	VendorRequestWithdrawal(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.requestInput == nil || !stub.requestInput.Amount.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("unexpected input %+v", stub.requestInput)
	}

	var envelope struct {
		Data withdrawalResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.FeeAmount != "5.00" || envelope.Data.NetAmount != "95.00" {
		t.Fatalf("unexpected fee breakdown %+v", envelope.Data)
	}
}

func TestVendorRequestWithdrawalRejectsBadAmount(t *testing.T) {
	body := `{"amount":"lots"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(body))
	req = req.WithContext(middleware.WithResellerID(context.Background(), uuid.NewString()))
	rec := httptest.NewRecorder()
	VendorRequestWithdrawal(&stubWithdrawalService{}, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestVendorRequestWithdrawalPropagatesOverdraft(t *testing.T) {
	stub := &stubWithdrawalService{
		requestErr: pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient balance"),
	}
	body := `{"amount":"500.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(body))
	req = req.WithContext(middleware.WithResellerID(context.Background(), uuid.NewString()))
	rec := httptest.NewRecorder()
	VendorRequestWithdrawal(stub, testLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", rec.Code)
	}
}

func reviewRequest(adminID uuid.UUID, withdrawalID, action, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/withdrawals/"+withdrawalID+"/"+action, reader)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("withdrawalID", withdrawalID)
	ctx := middleware.WithResellerID(context.Background(), adminID.String())
	ctx = middleware.WithRole(ctx, string(enums.ActorRoleAdmin))
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	return req.WithContext(ctx)
}

func TestAdminApproveWithdrawal(t *testing.T) {
	adminID := uuid.New()
	withdrawalID := uuid.New()
	stub := &stubWithdrawalService{
		reviewRes: &models.WithdrawalRequest{
			ID:     withdrawalID,
			Status: enums.WithdrawalStatusApproved,
			Amount: decimal.RequireFromString("50.00"),
		},
	}

	rec := httptest.NewRecorder()
	AdminApproveWithdrawal(stub, testLogger()).ServeHTTP(rec, reviewRequest(adminID, withdrawalID.String(), "approve", `{"notes":"paid via bank"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.approvedID != withdrawalID {
		t.Fatalf("expected approve on %s got %s", withdrawalID, stub.approvedID)
	}
	if stub.notes != "paid via bank" {
		t.Fatalf("expected notes to reach service, got %q", stub.notes)
	}
}

func TestAdminRejectWithdrawalWithoutBody(t *testing.T) {
	withdrawalID := uuid.New()
	stub := &stubWithdrawalService{
		reviewRes: &models.WithdrawalRequest{
			ID:     withdrawalID,
			Status: enums.WithdrawalStatusRejected,
			Amount: decimal.RequireFromString("50.00"),
		},
	}

	rec := httptest.NewRecorder()
	AdminRejectWithdrawal(stub, testLogger()).ServeHTTP(rec, reviewRequest(uuid.New(), withdrawalID.String(), "reject", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.rejectedID != withdrawalID {
		t.Fatalf("expected reject on %s got %s", withdrawalID, stub.rejectedID)
	}
}
