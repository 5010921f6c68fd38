package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/pagination"
)

// Service defines wallet ledger operations.
type Service interface {
	WithTx(tx *gorm.DB) Service
	// CreditOrder appends the sale credit for an order. Calling it twice for
	// the same order is a no-op: the unique order index absorbs the retry.
	CreditOrder(ctx context.Context, input CreditOrderInput) error
	// Debit appends a negative entry, guarding against overdraft.
	Debit(ctx context.Context, input DebitInput) error
	Balance(ctx context.Context, resellerID uuid.UUID) (decimal.Decimal, error)
	ListEntries(ctx context.Context, resellerID uuid.UUID, params pagination.Params) ([]models.WalletEntry, error)
}

// CreditOrderInput captures the immutable data an order credit requires.
type CreditOrderInput struct {
	ResellerID  uuid.UUID
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Description string
}

// DebitInput captures a withdrawal or adjustment debit.
type DebitInput struct {
	ResellerID  uuid.UUID
	Type        enums.WalletEntryType
	Amount      decimal.Decimal
	Description string
}

type service struct {
	repo Repository
}

// NewService wires a wallet service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) CreditOrder(ctx context.Context, input CreditOrderInput) error {
	if input.ResellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	orderID := input.OrderID
	entry := &models.WalletEntry{
		ResellerID: input.ResellerID,
		Type:       enums.WalletEntryTypeOrderCredit,
		Amount:     input.Amount,
		OrderID:    &orderID,
	}
	if input.Description != "" {
		entry.Description = &input.Description
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err) {
			// Already credited by an earlier attempt.
			return nil
		}
		return err
	}
	return nil
}

func (s *service) Debit(ctx context.Context, input DebitInput) error {
	if input.ResellerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	if input.Type != enums.WalletEntryTypeWithdrawalDebit && input.Type != enums.WalletEntryTypeAdjustment {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid debit entry type")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	// The row lock queues concurrent debits for one reseller, so two
	// withdrawal requests cannot both pass the balance check below.
	if err := s.repo.LockReseller(ctx, input.ResellerID); err != nil {
		return err
	}
	balance, err := s.repo.Balance(ctx, input.ResellerID)
	if err != nil {
		return err
	}
	if balance.LessThan(input.Amount) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient wallet balance").
			WithDetails(map[string]any{
				"balance":   balance.StringFixed(2),
				"requested": input.Amount.StringFixed(2),
			})
	}

	entry := &models.WalletEntry{
		ResellerID: input.ResellerID,
		Type:       input.Type,
		Amount:     input.Amount.Neg(),
	}
	if input.Description != "" {
		entry.Description = &input.Description
	}
	return s.repo.Create(ctx, entry)
}

func (s *service) Balance(ctx context.Context, resellerID uuid.UUID) (decimal.Decimal, error) {
	if resellerID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	return s.repo.Balance(ctx, resellerID)
}

func (s *service) ListEntries(ctx context.Context, resellerID uuid.UUID, params pagination.Params) ([]models.WalletEntry, error) {
	if resellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reseller id is required")
	}
	return s.repo.ListByReseller(ctx, resellerID, params)
}
