package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"traderDashboard/internal/domain"
	"traderDashboard/internal/ports"
)

var tracer = otel.Tracer("traderDashboard/internal/app")

// tracedSource wraps an account-data handle with one span per upstream call.
type tracedSource struct {
	next      ports.AccountDataSource
	platform  string
	accountID string
}

func (t *tracedSource) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("account.id", t.accountID),
		attribute.String("account.platform", t.platform),
	)
	return tracer.Start(ctx, "AccountDataSource."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *tracedSource) GetAccountInformation(ctx context.Context) (*domain.AccountSnapshot, error) {
	ctx, span := t.start(ctx, "GetAccountInformation")
	snap, err := t.next.GetAccountInformation(ctx)
	endSpan(span, err)
	return snap, err
}

func (t *tracedSource) GetHistoryOrders(ctx context.Context, from, to time.Time) ([]domain.Order, error) {
	ctx, span := t.start(ctx, "GetHistoryOrders",
		attribute.String("range.from", from.UTC().Format(time.RFC3339)),
		attribute.String("range.to", to.UTC().Format(time.RFC3339)))
	orders, err := t.next.GetHistoryOrders(ctx, from, to)
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	endSpan(span, err)
	return orders, err
}

func (t *tracedSource) GetDealsByPosition(ctx context.Context, positionID string) ([]domain.Deal, error) {
	ctx, span := t.start(ctx, "GetDealsByPosition", attribute.String("position.id", positionID))
	deals, err := t.next.GetDealsByPosition(ctx, positionID)
	endSpan(span, err)
	return deals, err
}

func (t *tracedSource) GetDealsByTimeRange(ctx context.Context, from, to time.Time) ([]domain.Deal, error) {
	ctx, span := t.start(ctx, "GetDealsByTimeRange",
		attribute.String("range.from", from.UTC().Format(time.RFC3339)),
		attribute.String("range.to", to.UTC().Format(time.RFC3339)))
	deals, err := t.next.GetDealsByTimeRange(ctx, from, to)
	span.SetAttributes(attribute.Int("deals.count", len(deals)))
	endSpan(span, err)
	return deals, err
}
