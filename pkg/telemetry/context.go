package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles logging, tracing and metrics.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Config  *Config
}

type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(c *Config) (*Telemetry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(c.Logging)
	if err != nil {
		return nil, err
	}
	return newTelemetry(c, logger)
}

// NewTelemetryWithLogger is like NewTelemetry but uses an existing logger.
func NewTelemetryWithLogger(c *Config, logger *Logger) (*Telemetry, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return newTelemetry(c, logger)
}

func newTelemetry(c *Config, logger *Logger) (*Telemetry, error) {
	tracer, err := NewTracer(c.Tracing, c.ServiceName, c.ServiceVersion)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(c.Metrics)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Config:  c,
	}, nil
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown flushes and stops the tracer.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}

// InstrumentedContext carries the span, logger and timer of one operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer

	tel     *Telemetry
	checkID string
}

// StartCheck begins an instrumented configuration check. Without telemetry
// in ctx it only times the operation.
func StartCheck(ctx context.Context, checkID, source string) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:     ctx,
			Span:    trace.SpanFromContext(ctx),
			Logger:  FromContext(ctx),
			Timer:   NewTimer(),
			checkID: checkID,
		}
	}

	spanCtx, span := tel.Tracer.StartCheckSpan(ctx, checkID, source)
	logger := tel.Logger.WithCheckID(checkID).WithSource(source)
	if traceID := TraceID(spanCtx); traceID != "" {
		logger = logger.WithField("trace_id", traceID)
	}

	return &InstrumentedContext{
		Ctx:     logger.WithContext(spanCtx),
		Span:    span,
		Logger:  logger,
		Timer:   NewTimer(),
		tel:     tel,
		checkID: checkID,
	}
}

// Phase runs fn inside a child span named after phase.
func (ic *InstrumentedContext) Phase(phase string, fn func(ctx context.Context) error) error {
	if ic.tel == nil {
		return fn(ic.Ctx)
	}
	ctx, span := ic.tel.Tracer.StartPhaseSpan(ic.Ctx, phase)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		RecordError(span, err)
	} else {
		RecordSuccess(span)
	}
	return err
}

// RecordParse forwards a per-variable parse outcome to metrics and, for
// rejected values, to the span.
func (ic *InstrumentedContext) RecordParse(variable string, err error) {
	if ic.tel == nil {
		return
	}
	ic.tel.Metrics.RecordParse(variable, err)
	if err != nil {
		ic.Span.AddEvent("variable.rejected", trace.WithAttributes(
			AttrVariable.String(variable),
			attribute.String("error.message", err.Error()),
		))
	}
}

// RecordFinding forwards a policy finding to metrics and the span.
func (ic *InstrumentedContext) RecordFinding(policy, variable, severity, message string) {
	if ic.tel == nil {
		return
	}
	ic.tel.Metrics.RecordFinding(policy, severity)
	AddFindingEvent(ic.Span, policy, variable, severity, message)
}

// End finishes the check. status is "ok", "findings" or "invalid"; err, if
// any, is recorded on the span.
func (ic *InstrumentedContext) End(status string, findings int, err error) {
	if ic.tel == nil {
		return
	}
	ic.tel.Metrics.RecordCheck(status, ic.Timer.Duration())
	ic.Span.SetAttributes(AttrFindingCount.Int(findings), attribute.String("check.status", status))
	if err != nil && !errors.Is(err, context.Canceled) {
		RecordError(ic.Span, err)
	} else {
		RecordSuccess(ic.Span)
	}
	ic.Span.End()

	ic.Logger.zlog.Debug().
		Str("status", status).
		Int("findings", findings).
		Dur("duration", ic.Timer.Duration()).
		Msg("check finished")
}
