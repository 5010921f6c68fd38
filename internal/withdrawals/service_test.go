package withdrawals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/internal/resellers"
	"github.com/luccasmf/pixkeys-backend/internal/wallet"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

type testEnv struct {
	svc       Service
	walletSvc wallet.Service
	gdb       *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:withdrawals_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Reseller{}, &models.WalletEntry{}, &models.WithdrawalRequest{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	walletSvc, err := wallet.NewService(wallet.NewRepository(gdb))
	if err != nil {
		t.Fatalf("wallet service: %v", err)
	}
	svc, err := NewService(
		db.FromGorm(gdb),
		NewRepository(gdb),
		walletSvc,
		resellers.NewRepository(gdb),
		decimal.RequireFromString("0.05"),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &testEnv{svc: svc, walletSvc: walletSvc, gdb: gdb}
}

func (env *testEnv) seedReseller(t *testing.T, pixKey string) *models.Reseller {
	t.Helper()
	reseller := &models.Reseller{
		Name:         "Vendor",
		Email:        uuid.NewString() + "@vendor.test",
		PasswordHash: "x",
		Role:         enums.ActorRoleReseller,
	}
	if pixKey != "" {
		reseller.PixKey = &pixKey
	}
	if err := env.gdb.Create(reseller).Error; err != nil {
		t.Fatalf("seed reseller: %v", err)
	}
	return reseller
}

func (env *testEnv) seedBalance(t *testing.T, resellerID uuid.UUID, amount string) {
	t.Helper()
	if err := env.walletSvc.CreditOrder(context.Background(), wallet.CreditOrderInput{
		ResellerID: resellerID,
		OrderID:    uuid.New(),
		Amount:     decimal.RequireFromString(amount),
	}); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
}

func TestRequestDebitsWalletAndComputesFee(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "200.00")

	request, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if !request.FeeAmount.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected fee 5.00, got %s", request.FeeAmount)
	}
	if !request.NetAmount.Equal(decimal.RequireFromString("95.00")) {
		t.Fatalf("expected net 95.00, got %s", request.NetAmount)
	}
	if request.PixKey != "vendor@pix.test" {
		t.Fatalf("expected pix key from profile, got %q", request.PixKey)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("expected pending status, got %s", request.Status)
	}

	balance, err := env.walletSvc.Balance(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected funds reserved leaving 100.00, got %s", balance)
	}
}

func TestRequestRejectsOverdraft(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "50.00")

	_, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("80.00"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// The failed request must leave no trace.
	requests, err := env.svc.ListMine(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(requests))
	}
	balance, err := env.walletSvc.Balance(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("expected untouched balance 50.00, got %s", balance)
	}
}

func TestRequestRequiresPixKey(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	reseller := env.seedReseller(t, "")
	env.seedBalance(t, reseller.ID, "50.00")

	_, err := env.svc.Request(context.Background(), RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("10.00"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestAcceptsExplicitPixKey(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	reseller := env.seedReseller(t, "")
	env.seedBalance(t, reseller.ID, "50.00")

	request, err := env.svc.Request(context.Background(), RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("10.00"),
		PixKey:     "+5511999990000",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if request.PixKey != "+5511999990000" {
		t.Fatalf("unexpected pix key %q", request.PixKey)
	}
}

func TestApproveMarksRequestReviewed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "100.00")
	adminID := uuid.New()

	request, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("40.00"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	approved, err := env.svc.Approve(ctx, adminID, request.ID, "paid via bank portal")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.WithdrawalStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.ReviewedBy == nil || *approved.ReviewedBy != adminID {
		t.Fatal("expected reviewer recorded")
	}
	if approved.Notes == nil || *approved.Notes != "paid via bank portal" {
		t.Fatal("expected notes recorded")
	}

	// Approval keeps the debit in place.
	balance, err := env.walletSvc.Balance(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected balance 60.00, got %s", balance)
	}

	// A reviewed request cannot be reviewed again.
	_, err = env.svc.Reject(ctx, adminID, request.ID, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestRejectRefundsWallet(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "100.00")
	adminID := uuid.New()

	request, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("40.00"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	rejected, err := env.svc.Reject(ctx, adminID, request.ID, "pix key mismatch")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != enums.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}

	balance, err := env.walletSvc.Balance(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected refund back to 100.00, got %s", balance)
	}
}

func TestRejectTwiceRefundsOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "100.00")
	adminID := uuid.New()

	request, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("40.00"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := env.svc.Reject(ctx, adminID, request.ID, ""); err != nil {
		t.Fatalf("first reject: %v", err)
	}
	_, err = env.svc.Reject(ctx, adminID, request.ID, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on second reject, got %v", err)
	}

	// Exactly one refund: the balance is back to 100, not 140.
	balance, err := env.walletSvc.Balance(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("expected single refund to 100.00, got %s", balance)
	}
}

func TestRejectAfterApproveDoesNotRefund(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "100.00")
	adminID := uuid.New()

	request, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("40.00"),
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if _, err := env.svc.Approve(ctx, adminID, request.ID, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = env.svc.Reject(ctx, adminID, request.ID, "")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	// The approved withdrawal keeps its debit.
	balance, err := env.walletSvc.Balance(ctx, reseller.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("60.00")) {
		t.Fatalf("expected balance 60.00, got %s", balance)
	}
}

func TestListPendingOldestFirst(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	reseller := env.seedReseller(t, "vendor@pix.test")
	env.seedBalance(t, reseller.ID, "100.00")

	first, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("10.00"),
	})
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := env.svc.Request(ctx, RequestInput{
		ResellerID: reseller.ID,
		Amount:     decimal.RequireFromString("20.00"),
	}); err != nil {
		t.Fatalf("second request: %v", err)
	}

	pending, err := env.svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Fatal("expected oldest request first")
	}
}
