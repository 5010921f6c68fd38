package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
)

// centsFactor converts decimal reais into the integer centavos most PIX
// provider APIs expect.
var centsFactor = decimal.NewFromInt(100)

// ChargeStatus is the provider-agnostic state of a PIX charge.
type ChargeStatus string

const (
	ChargeStatusPending ChargeStatus = "pending"
	ChargeStatusPaid    ChargeStatus = "paid"
	ChargeStatusExpired ChargeStatus = "expired"
)

// CreateChargeInput carries everything a gateway needs to issue a PIX charge.
type CreateChargeInput struct {
	OrderID       uuid.UUID
	Amount        decimal.Decimal
	CustomerEmail string
	Description   string
}

// Charge is the gateway's answer to a charge request.
type Charge struct {
	ProviderBillingID string
	QRCode            string
	CopyPaste         string
	Amount            decimal.Decimal
}

// WebhookEvent is a provider notification normalized into common terms.
type WebhookEvent struct {
	ProviderBillingID string
	Status            ChargeStatus
}

// Gateway abstracts a PIX payment provider. Implementations live next to
// this file; the reconciler only ever sees this interface.
type Gateway interface {
	Name() enums.PaymentProvider
	CreateCharge(ctx context.Context, input CreateChargeInput) (*Charge, error)
	GetChargeStatus(ctx context.Context, providerBillingID string) (ChargeStatus, error)
	// VerifyWebhook checks the request signature against the provider's
	// shared secret. Callers must reject the request when this is false.
	VerifyWebhook(payload []byte, signature string) bool
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}

// Registry resolves gateways by provider name.
type Registry struct {
	gateways map[enums.PaymentProvider]Gateway
}

// NewRegistry indexes the provided gateways.
func NewRegistry(gateways ...Gateway) *Registry {
	indexed := make(map[enums.PaymentProvider]Gateway, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		indexed[gw.Name()] = gw
	}
	return &Registry{gateways: indexed}
}

// ByName returns the gateway registered for the provider.
func (r *Registry) ByName(provider enums.PaymentProvider) (Gateway, error) {
	if gw, ok := r.gateways[provider]; ok {
		return gw, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment provider").
		WithDetails(map[string]any{"provider": provider.String()})
}
