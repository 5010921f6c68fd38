package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/internal/resellers"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/security"
)

// RegisterService handles reseller onboarding.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*ResellerSummary, error)
}

type registerService struct {
	db *db.Client
}

// NewRegisterService builds a registration service.
func NewRegisterService(client *db.Client) (RegisterService, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{db: client}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*ResellerSummary, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	reseller := &models.Reseller{
		Name:           name,
		Email:          email,
		PasswordHash:   passwordHash,
		Role:           enums.ActorRoleReseller,
		WhatsAppNumber: req.WhatsAppNumber,
		PixKey:         req.PixKey,
		IsActive:       true,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := resellers.NewRepository(tx)
		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check reseller email")
		}
		if err := repo.Create(ctx, reseller); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create reseller")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summarize(reseller), nil
}
