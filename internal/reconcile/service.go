package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/luccasmf/pixkeys-backend/internal/fulfillment"
	"github.com/luccasmf/pixkeys-backend/internal/orders"
	"github.com/luccasmf/pixkeys-backend/internal/payments"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/enums"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

// Actor identifies who is asking for a manual approval.
type Actor struct {
	ResellerID uuid.UUID
	Role       enums.ActorRole
}

// Service turns payment confirmations from any source into deliveries.
// Three paths converge here: provider webhooks, the status poller, and
// manual vendor approval. All of them end in the same fulfillment call, so
// a payment confirmed twice still delivers once.
type Service interface {
	// HandleWebhook verifies, parses, and acts on a provider notification.
	// An invalid signature returns CodeUnauthorized and must become a 401.
	HandleWebhook(ctx context.Context, provider enums.PaymentProvider, payload []byte, signature string) error
	// PollPending asks the providers about every pending order and fulfills
	// the ones that turn out paid. Returns how many were delivered.
	PollPending(ctx context.Context) (int, error)
	// ApproveManually lets a vendor (or admin) confirm an off-channel
	// payment for one of their orders. Approving an already-paid order
	// succeeds as a no-op and hands back the originally delivered content.
	ApproveManually(ctx context.Context, actor Actor, orderID uuid.UUID) (*fulfillment.Outcome, error)
}

const pollBatchSize = 100

type service struct {
	orderRepo orders.Repository
	gateways  *payments.Registry
	fulfiller fulfillment.Service
	guard     *IdempotencyGuard
	logg      *logger.Logger
}

// NewService wires the reconciler.
func NewService(
	orderRepo orders.Repository,
	gateways *payments.Registry,
	fulfiller fulfillment.Service,
	guard *IdempotencyGuard,
	logg *logger.Logger,
) (Service, error) {
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if gateways == nil {
		return nil, fmt.Errorf("payment gateway registry required")
	}
	if fulfiller == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	return &service{
		orderRepo: orderRepo,
		gateways:  gateways,
		fulfiller: fulfiller,
		guard:     guard,
		logg:      logg,
	}, nil
}

func (s *service) HandleWebhook(ctx context.Context, provider enums.PaymentProvider, payload []byte, signature string) error {
	gateway, err := s.gateways.ByName(provider)
	if err != nil {
		return err
	}
	if !gateway.VerifyWebhook(payload, signature) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature")
	}

	event, err := gateway.ParseWebhook(payload)
	if err != nil {
		return err
	}
	if event.Status != payments.ChargeStatusPaid {
		// Nothing to do for pending/expired notifications.
		return nil
	}

	if s.guard != nil {
		eventID := fmt.Sprintf("%s:%s:paid", provider, event.ProviderBillingID)
		seen, err := s.guard.CheckAndMark(ctx, eventID)
		if err != nil {
			// Redis being down must not drop payments; fall through to the
			// idempotent pipeline.
			s.warnErr(ctx, "webhook idempotency check failed", err)
		} else if seen {
			return nil
		}
	}

	order, err := s.orderRepo.GetByProviderBillingID(ctx, provider, event.ProviderBillingID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no order for webhook charge")
		}
		return err
	}

	if _, err := s.fulfiller.Deliver(ctx, order.ID, fulfillment.TriggerWebhook); err != nil {
		if s.guard != nil {
			eventID := fmt.Sprintf("%s:%s:paid", provider, event.ProviderBillingID)
			if delErr := s.guard.Delete(ctx, eventID); delErr != nil {
				s.warnErr(ctx, "failed to clear idempotency mark", delErr)
			}
		}
		return err
	}
	return nil
}

func (s *service) PollPending(ctx context.Context) (int, error) {
	pending, err := s.orderRepo.ListPending(ctx, pollBatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	var errs []error
	for _, order := range pending {
		gateway, err := s.gateways.ByName(order.Provider)
		if err != nil {
			s.warnErr(ctx, "pending order has unknown provider", err)
			continue
		}
		status, err := gateway.GetChargeStatus(ctx, order.ProviderBillingID)
		if err != nil {
			// One sick provider must not stall the whole sweep.
			s.warnErr(ctx, "charge status check failed", err)
			errs = append(errs, fmt.Errorf("order %s: charge status: %w", order.ID, err))
			continue
		}
		if status != payments.ChargeStatusPaid {
			continue
		}
		outcome, err := s.fulfiller.Deliver(ctx, order.ID, fulfillment.TriggerPoll)
		if err != nil {
			s.warnErr(ctx, "poll-triggered delivery failed", err)
			errs = append(errs, fmt.Errorf("order %s: deliver: %w", order.ID, err))
			continue
		}
		if outcome.Delivered {
			delivered++
		}
	}
	return delivered, multierr.Combine(errs...)
}

func (s *service) ApproveManually(ctx context.Context, actor Actor, orderID uuid.UUID) (*fulfillment.Outcome, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	if actor.Role != enums.ActorRoleAdmin && order.ResellerID != actor.ResellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to reseller")
	}

	// Deliver is idempotent: a replayed approval comes back with
	// AlreadyFulfilled and the content delivered the first time.
	return s.fulfiller.Deliver(ctx, order.ID, fulfillment.TriggerManual)
}

func (s *service) warnErr(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Error(ctx, msg, err)
}
