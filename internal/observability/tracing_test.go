package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracerDefaultsServiceName(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer shutdown(context.Background())

	if tracer.config.ServiceName != "swarmcore" {
		t.Fatalf("ServiceName = %q, want swarmcore", tracer.config.ServiceName)
	}
	if tracer.config.SamplingRate != 1.0 {
		t.Fatalf("SamplingRate = %v, want 1.0", tracer.config.SamplingRate)
	}
}

func TestTraceHelpersReturnUsableSpans(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{ServiceName: "test"})
	defer shutdown(context.Background())

	ctx := context.Background()

	_, turnSpan := tracer.TraceTurn(ctx, "c1", "agent1")
	defer turnSpan.End()

	_, toolSpan := tracer.TraceToolExecution(ctx, "fs_read")
	defer toolSpan.End()

	_, publishSpan := tracer.TraceTransportPublish(ctx, 1)
	defer publishSpan.End()

	_, delegationSpan := tracer.TraceDelegationAwait(ctx, "d1")
	defer delegationSpan.End()

	_, persistSpan := tracer.TraceConversationPersist(ctx, "c1")
	defer persistSpan.End()

	tracer.RecordError(turnSpan, errors.New("boom"))
	tracer.RecordError(turnSpan, nil)
}
