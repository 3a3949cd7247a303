package order

import (
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/xenking/choco-orders/internal/domain/order"

// PricingPolicy selects where line item prices come from.
type PricingPolicy string

const (
	// PricingSnapshot trusts the caller's price snapshots.
	PricingSnapshot PricingPolicy = "snapshot"
	// PricingCatalog re-prices every item from the product catalog.
	PricingCatalog PricingPolicy = "catalog"
)

// ParsePricingPolicy validates a configured policy. Empty means snapshot.
func ParsePricingPolicy(s string) (PricingPolicy, error) {
	switch p := PricingPolicy(s); p {
	case "":
		return PricingSnapshot, nil
	case PricingSnapshot, PricingCatalog:
		return p, nil
	default:
		return "", errors.Errorf("unknown pricing policy %q", s)
	}
}

// Option configures a Service.
type Option func(*options)

type options struct {
	policy         PricingPolicy
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func newOptions(opts []Option) options {
	o := options{
		policy:         PricingSnapshot,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithPricingPolicy sets the pricing policy.
func WithPricingPolicy(p PricingPolicy) Option {
	return func(o *options) {
		if p != "" {
			o.policy = p
		}
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

type stats struct {
	created      metric.Int64Counter
	rejected     metric.Int64Counter
	pointsSpent  metric.Int64Counter
	pointsEarned metric.Int64Counter
}

func newStats(m metric.Meter) stats {
	counter := func(name, desc string) metric.Int64Counter {
		c, err := m.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			return noop.Int64Counter{}
		}
		return c
	}
	return stats{
		created:      counter("orders.created", "Orders committed"),
		rejected:     counter("orders.rejected", "Order operations rejected, by error code"),
		pointsSpent:  counter("points.spent", "Loyalty points debited by redemptions"),
		pointsEarned: counter("points.earned", "Loyalty points credited by orders"),
	}
}
