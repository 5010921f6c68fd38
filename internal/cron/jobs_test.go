package cron

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePoller struct {
	delivered int
	err       error
	calls     int
}

func (f *fakePoller) PollPending(context.Context) (int, error) {
	f.calls++
	return f.delivered, f.err
}

type fakeDeleter struct {
	deleted int64
	err     error
	cutoffs []time.Time
}

func (f *fakeDeleter) DeleteExpiredPending(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.deleted, f.err
}

func TestPaymentPollJobDelegatesToPoller(t *testing.T) {
	t.Parallel()

	poller := &fakePoller{delivered: 2}
	job, err := NewPaymentPollJob(PaymentPollJobParams{
		Logger: testLogger(),
		Poller: poller,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if job.Name() != "payment-poll" {
		t.Fatalf("unexpected name %q", job.Name())
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if poller.calls != 1 {
		t.Fatalf("expected 1 poll, got %d", poller.calls)
	}
}

func TestPaymentPollJobPropagatesError(t *testing.T) {
	t.Parallel()

	poller := &fakePoller{err: errors.New("provider down")}
	job, err := NewPaymentPollJob(PaymentPollJobParams{
		Logger: testLogger(),
		Poller: poller,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOrderExpiryJobUsesTTLCutoff(t *testing.T) {
	t.Parallel()

	deleter := &fakeDeleter{deleted: 3}
	jobIface, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: testLogger(),
		Orders: deleter,
		TTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	job := jobIface.(*orderExpiryJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(deleter.cutoffs) != 1 {
		t.Fatalf("expected 1 delete call, got %d", len(deleter.cutoffs))
	}
	want := now.Add(-24 * time.Hour)
	if !deleter.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, deleter.cutoffs[0])
	}
}

func TestOrderExpiryJobRequiresPositiveTTL(t *testing.T) {
	t.Parallel()

	_, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: testLogger(),
		Orders: &fakeDeleter{},
	})
	if err == nil {
		t.Fatal("expected error for zero ttl")
	}
}
