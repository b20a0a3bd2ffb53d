package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes storefront business instruments.
type Metrics struct {
	priceFetches     metric.Int64Counter
	checkoutSessions metric.Int64Counter
	purchases        metric.Int64Counter
	signups          metric.Int64Counter
	identityChecks   metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(15*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the business instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "storefront"
	}
	meter := provider.Meter(name)

	priceFetches, err := meter.Int64Counter("storefront_price_fetches_total")
	if err != nil {
		return nil, err
	}
	checkoutSessions, err := meter.Int64Counter("storefront_checkout_sessions_total")
	if err != nil {
		return nil, err
	}
	purchases, err := meter.Int64Counter("storefront_purchases_total")
	if err != nil {
		return nil, err
	}
	signups, err := meter.Int64Counter("storefront_signups_total")
	if err != nil {
		return nil, err
	}

	identityChecks, err := meter.Int64Counter("storefront_identity_checks_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		identityChecks:   identityChecks,
		priceFetches:     priceFetches,
		checkoutSessions: checkoutSessions,
		purchases:        purchases,
		signups:          signups,
	}, nil
}

func (m *Metrics) RecordPriceFetch(ctx context.Context, fixedPrice bool, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.Bool("fixed_price", fixedPrice),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.priceFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCheckoutSession(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.checkoutSessions.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

// RecordPurchase counts finalized purchases by sellable type and plan.
func (m *Metrics) RecordPurchase(ctx context.Context, sellableType string, bulk bool, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("sellable_type", strings.ToLower(strings.TrimSpace(sellableType))),
		attribute.Bool("bulk", bulk),
		attribute.String("outcome", outcome),
	)
	m.purchases.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordSignup(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.signups.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("outcome", outcome))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"outcome":       {},
	"fixed_price":   {},
	"sellable_type": {},
	"bulk":          {},
	"status_code":   {},
	"route":         {},
	"kind":          {},
}

// RecordIdentityCheck counts viewer identity lookups; kind is check or refresh.
func (m *Metrics) RecordIdentityCheck(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)
	m.identityChecks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Buyer emails and coupon codes must never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
