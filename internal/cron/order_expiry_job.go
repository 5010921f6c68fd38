package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

type expiredOrderDeleter interface {
	DeleteExpiredPending(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderExpiryJobParams configure the stale order sweep.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders expiredOrderDeleter
	TTL    time.Duration
}

// NewOrderExpiryJob builds the job that removes pending orders whose PIX
// charge expired unpaid. No stock was claimed for them, so deletion is safe.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order deleter required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("pending order ttl must be positive")
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    params.TTL,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders expiredOrderDeleter
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.orders.DeleteExpiredPending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired pending orders: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "deleted", deleted)
	j.logg.Info(logCtx, "order expiry sweep complete")
	return nil
}
