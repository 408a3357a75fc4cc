package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
)

const instrumentationName = "gitlab.com/yelinaung/taxi-ledger/internal/engine"

// instruments are created against the global providers, so they pick up
// whatever telemetry.Setup installed, or no-ops when it was not called.
type instruments struct {
	tracer        trace.Tracer
	recomputes    metric.Int64Counter
	recomputeTime metric.Float64Histogram
}

func newInstruments() *instruments {
	meter := otel.Meter(instrumentationName)
	inst := &instruments{tracer: otel.Tracer(instrumentationName)}

	var err error
	inst.recomputes, err = meter.Int64Counter("ledger.view.recomputations",
		metric.WithDescription("Derived view recomputations by view and outcome"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create recomputation counter")
	}
	inst.recomputeTime, err = meter.Float64Histogram("ledger.view.duration",
		metric.WithDescription("Derived view computation time"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create recomputation histogram")
	}
	return inst
}

// recordCompute records one view evaluation. outcome is "ok", "error" or
// "cancelled".
func (i *instruments) recordCompute(ctx context.Context, view, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("view", view),
		attribute.String("outcome", outcome),
	)
	if i.recomputes != nil {
		i.recomputes.Add(ctx, 1, attrs)
	}
	if i.recomputeTime != nil {
		i.recomputeTime.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
