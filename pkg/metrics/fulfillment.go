package metrics

import "github.com/prometheus/client_golang/prometheus"

// FulfillmentMetrics tracks delivery outcomes across all trigger paths.
type FulfillmentMetrics struct {
	delivered *prometheus.CounterVec
	shortfall prometheus.Counter
	notified  *prometheus.CounterVec
}

// NewFulfillmentMetrics registers fulfillment counters on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_delivered_total",
		Help: "Orders fulfilled end to end, labeled by trigger path.",
	}, []string{"trigger"})
	shortfall := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_stock_shortfall_total",
		Help: "Fulfillment attempts aborted because stock ran out under a paid order.",
	})
	notified := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "delivery_emails_total",
		Help: "Delivery email attempts, labeled by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(delivered, shortfall, notified)
	return &FulfillmentMetrics{
		delivered: delivered,
		shortfall: shortfall,
		notified:  notified,
	}
}

// IncDelivered counts a completed fulfillment for the given trigger
// (webhook, poll, or manual).
func (f *FulfillmentMetrics) IncDelivered(trigger string) {
	if f == nil || f.delivered == nil {
		return
	}
	f.delivered.WithLabelValues(normalizeLabel(trigger)).Inc()
}

// IncShortfall counts a paid order that could not be fulfilled for lack of stock.
func (f *FulfillmentMetrics) IncShortfall() {
	if f == nil || f.shortfall == nil {
		return
	}
	f.shortfall.Inc()
}

// IncEmail counts an email attempt with outcome "success" or "failure".
func (f *FulfillmentMetrics) IncEmail(outcome string) {
	if f == nil || f.notified == nil {
		return
	}
	f.notified.WithLabelValues(normalizeLabel(outcome)).Inc()
}
