package withdrawals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/internal/resellers"
	"github.com/luccasmf/pixkeys-backend/internal/wallet"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

// Service defines the withdrawal lifecycle. Funds leave the wallet when the
// request is filed, so a reseller cannot double-spend a balance while an
// admin reviews it; rejection refunds the full amount.
type Service interface {
	Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error)
	ListMine(ctx context.Context, resellerID uuid.UUID) ([]models.WithdrawalRequest, error)
	ListPending(ctx context.Context) ([]models.WithdrawalRequest, error)
	Approve(ctx context.Context, adminID, requestID uuid.UUID, notes string) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, adminID, requestID uuid.UUID, notes string) (*models.WithdrawalRequest, error)
}

// RequestInput captures a new withdrawal ask.
type RequestInput struct {
	ResellerID uuid.UUID
	Amount     decimal.Decimal
	PixKey     string
}

type service struct {
	client    *db.Client
	repo      Repository
	walletSvc wallet.Service
	resellers resellers.Repository
	feeRate   decimal.Decimal
}

// NewService wires the withdrawal service. feeRate is a fraction, e.g. 0.05.
func NewService(client *db.Client, repo Repository, walletSvc wallet.Service, resellerRepo resellers.Repository, feeRate decimal.Decimal) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("withdrawal repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if resellerRepo == nil {
		return nil, fmt.Errorf("reseller repository required")
	}
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("fee rate must be in [0, 1)")
	}
	return &service{
		client:    client,
		repo:      repo,
		walletSvc: walletSvc,
		resellers: resellerRepo,
		feeRate:   feeRate,
	}, nil
}

func (s *service) Request(ctx context.Context, input RequestInput) (*models.WithdrawalRequest, error) {
	if input.ResellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	pixKey := strings.TrimSpace(input.PixKey)
	if pixKey == "" {
		reseller, err := s.resellers.GetByID(ctx, input.ResellerID)
		if err != nil {
			return nil, err
		}
		if reseller.PixKey == nil || *reseller.PixKey == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "no pix key on file")
		}
		pixKey = *reseller.PixKey
	}

	fee := input.Amount.Mul(s.feeRate).Round(2)
	request := &models.WithdrawalRequest{
		ResellerID: input.ResellerID,
		Amount:     input.Amount,
		FeeAmount:  fee,
		NetAmount:  input.Amount.Sub(fee),
		PixKey:     pixKey,
		Status:     enums.WithdrawalStatusPending,
	}

	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.walletSvc.WithTx(tx).Debit(ctx, wallet.DebitInput{
			ResellerID:  input.ResellerID,
			Type:        enums.WalletEntryTypeWithdrawalDebit,
			Amount:      input.Amount,
			Description: "withdrawal request",
		}); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Create(ctx, request)
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) ListMine(ctx context.Context, resellerID uuid.UUID) ([]models.WithdrawalRequest, error) {
	if resellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	return s.repo.ListByReseller(ctx, resellerID)
}

func (s *service) ListPending(ctx context.Context) ([]models.WithdrawalRequest, error) {
	return s.repo.ListByStatus(ctx, enums.WithdrawalStatusPending)
}

func (s *service) Approve(ctx context.Context, adminID, requestID uuid.UUID, notes string) (*models.WithdrawalRequest, error) {
	return s.review(ctx, adminID, requestID, notes, enums.WithdrawalStatusApproved)
}

func (s *service) Reject(ctx context.Context, adminID, requestID uuid.UUID, notes string) (*models.WithdrawalRequest, error) {
	return s.review(ctx, adminID, requestID, notes, enums.WithdrawalStatusRejected)
}

func (s *service) review(ctx context.Context, adminID, requestID uuid.UUID, notes string, verdict enums.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	if adminID == uuid.Nil || requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin id and request id are required")
	}

	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}
		return nil, err
	}

	now := time.Now().UTC()
	var reviewNotes *string
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		reviewNotes = &trimmed
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		// The verdict lands only while the request is still pending, so a
		// rival review cannot refund the same request twice.
		won, err := s.repo.WithTx(tx).MarkReviewed(ctx, requestID, verdict, adminID, now, reviewNotes)
		if err != nil {
			return err
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal request already reviewed")
		}
		if verdict != enums.WithdrawalStatusRejected {
			return nil
		}
		// Rejection puts the money back.
		refund := &models.WalletEntry{
			ResellerID: request.ResellerID,
			Type:       enums.WalletEntryTypeAdjustment,
			Amount:     request.Amount,
		}
		desc := fmt.Sprintf("refund of rejected withdrawal %s", request.ID)
		refund.Description = &desc
		return tx.WithContext(ctx).Create(refund).Error
	})
	if err != nil {
		return nil, err
	}

	request.Status = verdict
	request.ReviewedBy = &adminID
	request.ReviewedAt = &now
	request.Notes = reviewNotes
	return request, nil
}
