package cron

import (
	"context"
	"fmt"

	"github.com/luccasmf/pixkeys-backend/pkg/logger"
)

type pendingPoller interface {
	PollPending(ctx context.Context) (int, error)
}

// PaymentPollJobParams configure the payment status sweep.
type PaymentPollJobParams struct {
	Logger *logger.Logger
	Poller pendingPoller
}

// NewPaymentPollJob builds the job that asks payment providers about every
// pending order. It backstops webhooks that never arrived.
func NewPaymentPollJob(params PaymentPollJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Poller == nil {
		return nil, fmt.Errorf("pending poller required")
	}
	return &paymentPollJob{
		logg:   params.Logger,
		poller: params.Poller,
	}, nil
}

type paymentPollJob struct {
	logg   *logger.Logger
	poller pendingPoller
}

func (j *paymentPollJob) Name() string { return "payment-poll" }

func (j *paymentPollJob) Run(ctx context.Context) error {
	delivered, err := j.poller.PollPending(ctx)
	if err != nil {
		return fmt.Errorf("poll pending orders: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "delivered", delivered)
	j.logg.Info(logCtx, "payment poll sweep complete")
	return nil
}
