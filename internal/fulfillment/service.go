package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luccasmf/pixkeys-backend/internal/notify"
	"github.com/luccasmf/pixkeys-backend/internal/orders"
	"github.com/luccasmf/pixkeys-backend/internal/products"
	"github.com/luccasmf/pixkeys-backend/internal/resellers"
	"github.com/luccasmf/pixkeys-backend/internal/stock"
	"github.com/luccasmf/pixkeys-backend/internal/wallet"
	"github.com/luccasmf/pixkeys-backend/pkg/db"
	"github.com/luccasmf/pixkeys-backend/pkg/db/models"
	pkgerrors "github.com/luccasmf/pixkeys-backend/pkg/errors"
	"github.com/luccasmf/pixkeys-backend/pkg/logger"
	"github.com/luccasmf/pixkeys-backend/pkg/metrics"
)

// Trigger names the path that confirmed the payment.
const (
	TriggerWebhook = "webhook"
	TriggerPoll    = "poll"
	TriggerManual  = "manual"
)

// Outcome reports what a delivery attempt did.
type Outcome struct {
	// Delivered is true when this call performed the delivery.
	Delivered bool
	// AlreadyFulfilled is true when an earlier call had already won the
	// pending-to-paid transition.
	AlreadyFulfilled bool
	// Lines holds the payload handed to the customer, per order item.
	Lines []string
}

// Service runs the post-payment pipeline: flip the order to paid, claim
// stock, credit the vendor wallet, and notify the customer. The database
// steps share one transaction so a failure anywhere rolls everything back.
type Service interface {
	Deliver(ctx context.Context, orderID uuid.UUID, trigger string) (*Outcome, error)
}

type service struct {
	client      *db.Client
	orderRepo   orders.Repository
	stockRepo   stock.Repository
	products    products.Repository
	walletSvc   wallet.Service
	resellers   resellers.Repository
	emailSender notify.EmailSender
	logg        *logger.Logger
	metrics     *metrics.FulfillmentMetrics
	// asyncEmail is swapped out in tests to make sends synchronous.
	asyncEmail bool
}

// NewService wires the fulfillment pipeline.
func NewService(
	client *db.Client,
	orderRepo orders.Repository,
	stockRepo stock.Repository,
	productRepo products.Repository,
	walletSvc wallet.Service,
	resellerRepo resellers.Repository,
	emailSender notify.EmailSender,
	logg *logger.Logger,
	fulfillmentMetrics *metrics.FulfillmentMetrics,
) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if stockRepo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if resellerRepo == nil {
		return nil, fmt.Errorf("reseller repository required")
	}
	return &service{
		client:      client,
		orderRepo:   orderRepo,
		stockRepo:   stockRepo,
		products:    productRepo,
		walletSvc:   walletSvc,
		resellers:   resellerRepo,
		emailSender: emailSender,
		logg:        logg,
		metrics:     fulfillmentMetrics,
		asyncEmail:  true,
	}, nil
}

func (s *service) Deliver(ctx context.Context, orderID uuid.UUID, trigger string) (*Outcome, error) {
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

	outcome := &Outcome{}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txOrders := s.orderRepo.WithTx(tx)
		txStock := s.stockRepo.WithTx(tx)
		txWallet := s.walletSvc.WithTx(tx)

		now := time.Now().UTC()
		won, err := txOrders.MarkPaid(ctx, order.ID, now)
		if err != nil {
			return err
		}
		if !won {
			// Someone else already fulfilled it. Hand back the content that
			// was delivered then, so webhook replays see the same answer.
			outcome.AlreadyFulfilled = true
			delivered, err := txOrders.GetByID(ctx, order.ID)
			if err != nil {
				return err
			}
			for _, item := range delivered.Items {
				if item.DeliveredPayload != nil {
					outcome.Lines = append(outcome.Lines, stock.Lines(*item.DeliveredPayload)...)
				}
			}
			return nil
		}

		// Claim stock for every item. A shortfall on any item aborts the
		// whole transaction, so the order stays pending and nothing is
		// consumed or credited.
		for _, item := range order.Items {
			claimed, err := txStock.Claim(ctx, item.ProductID, item.ID, item.Quantity)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeOutOfStock {
					s.metrics.IncShortfall()
					s.warn(ctx, order, "stock ran out under a paid order")
				}
				return err
			}
			lines := make([]string, 0, len(claimed))
			for _, stockItem := range claimed {
				lines = append(lines, stockItem.Payload)
			}
			if err := txOrders.SetItemPayload(ctx, item.ID, stock.Render(lines)); err != nil {
				return err
			}
			outcome.Lines = append(outcome.Lines, lines...)
		}

		if err := txOrders.SetDelivered(ctx, order.ID, now); err != nil {
			return err
		}

		// Credit the vendor. A vanished reseller account downgrades to a
		// warning: the customer still gets the goods they paid for.
		if _, err := s.resellers.WithTx(tx).GetByID(ctx, order.ResellerID); err != nil {
			if db.IsNotFound(err) {
				s.warn(ctx, order, "reseller missing, skipping wallet credit")
				return nil
			}
			return err
		}
		return txWallet.CreditOrder(ctx, wallet.CreditOrderInput{
			ResellerID:  order.ResellerID,
			OrderID:     order.ID,
			Amount:      order.TotalAmount,
			Description: fmt.Sprintf("sale %s", order.ID),
		})
	})
	if err != nil {
		return nil, err
	}
	if outcome.AlreadyFulfilled {
		return outcome, nil
	}

	outcome.Delivered = true
	s.metrics.IncDelivered(trigger)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order fulfilled")
	}

	s.notifyCustomer(ctx, order, outcome.Lines)
	return outcome, nil
}

func (s *service) notifyCustomer(ctx context.Context, order *models.Order, lines []string) {
	if s.emailSender == nil {
		return
	}
	send := func() {
		product := ""
		quantity := 0
		instructions := ""
		if len(order.Items) > 0 {
			product = order.Items[0].ProductName
			quantity = order.Items[0].Quantity
			// Instructions live on the product, not the order snapshot. A
			// deleted product just means a plainer email.
			if p, err := s.products.GetByID(context.WithoutCancel(ctx), order.Items[0].ProductID); err == nil && p.DeliveryInstructions != nil {
				instructions = *p.DeliveryInstructions
			}
		}
		result := s.emailSender.SendDelivery(context.WithoutCancel(ctx), notify.DeliveryEmail{
			To:           order.CustomerEmail,
			OrderID:      order.ID.String(),
			ProductName:  product,
			Quantity:     quantity,
			Total:        order.TotalAmount,
			Lines:        lines,
			Instructions: instructions,
		})
		if result.Success {
			s.metrics.IncEmail("success")
			return
		}
		s.metrics.IncEmail("failure")
		if s.logg != nil {
			logCtx := s.logg.WithOrderID(ctx, order.ID.String())
			s.logg.Error(logCtx, "delivery email failed", result.Error)
		}
	}
	// Email rides outside the transaction: the sale is complete whether or
	// not the message lands.
	if s.asyncEmail {
		go send()
		return
	}
	send()
}

func (s *service) warn(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Warn(logCtx, msg)
}
