package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer scoped to one service, grounded on
// nexus's internal/observability/tracing.go Tracer/TraceConfig shape. The
// OTLP exporter wiring nexus layers on top is out of scope here: swarmcore
// only needs spans recorded against whatever global provider the embedding
// application installs, so NewTracer configures sampling and nothing else.
type Tracer struct {
	tracer trace.Tracer
	config TraceConfig
}

// TraceConfig configures span sampling for one Tracer.
type TraceConfig struct {
	ServiceName string

	// SamplingRate controls what fraction of traces are recorded, from
	// 0.0 (none) to 1.0 (all). Defaults to 1.0 when zero.
	SamplingRate float64
}

// NewTracer installs a sampler-configured TracerProvider as the global
// provider and returns a Tracer bound to config.ServiceName, plus a
// shutdown function to call on process exit.
func NewTracer(config TraceConfig) (*Tracer, func(context.Context) error) {
	if config.ServiceName == "" {
		config.ServiceName = "swarmcore"
	}
	if config.SamplingRate == 0 {
		config.SamplingRate = 1.0
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SamplingRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SamplingRate <= 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SamplingRate)
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sampler))
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer: provider.Tracer(config.ServiceName),
		config: config,
	}, provider.Shutdown
}

// Start creates a new span, mirroring trace.Tracer.Start.
func (t *Tracer) Start(ctx context.Context, name string, kind trace.SpanKind, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opts := []trace.SpanStartOption{trace.WithAttributes(attrs...)}
	if kind != trace.SpanKindUnspecified {
		opts = append(opts, trace.WithSpanKind(kind))
	}
	return t.tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks it errored, a no-op if err is
// nil.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceTurn starts a span around one ExecutionEngine.RunTurn call.
func (t *Tracer) TraceTurn(ctx context.Context, conversationID, agentPubkey string) (context.Context, trace.Span) {
	return t.Start(ctx, "execution.run_turn", trace.SpanKindInternal,
		attribute.String("conversation_id", conversationID),
		attribute.String("agent", agentPubkey),
	)
}

// TraceToolExecution starts a span around one tool invocation.
func (t *Tracer) TraceToolExecution(ctx context.Context, toolName string) (context.Context, trace.Span) {
	return t.Start(ctx, fmt.Sprintf("tool.%s", toolName), trace.SpanKindInternal,
		attribute.String("tool.name", toolName),
	)
}

// TraceTransportPublish starts a span around one Transport.Publish call.
func (t *Tracer) TraceTransportPublish(ctx context.Context, eventKind int) (context.Context, trace.Span) {
	return t.Start(ctx, "transport.publish", trace.SpanKindClient,
		attribute.Int("event.kind", eventKind),
	)
}

// TraceDelegationAwait starts a span that lives for the duration of a
// pending delegation, from registration to resolution.
func (t *Tracer) TraceDelegationAwait(ctx context.Context, delegationID string) (context.Context, trace.Span) {
	return t.Start(ctx, "delegation.await", trace.SpanKindInternal,
		attribute.String("delegation_id", delegationID),
	)
}

// TraceConversationPersist starts a span around one ConversationStore
// persistence write.
func (t *Tracer) TraceConversationPersist(ctx context.Context, conversationID string) (context.Context, trace.Span) {
	return t.Start(ctx, "convo.persist", trace.SpanKindClient,
		attribute.String("conversation_id", conversationID),
	)
}
