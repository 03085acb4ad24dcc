// Package execution implements ExecutionEngine, the seven-step per-turn
// lifecycle from spec.md §4.9, grounded on nexus's internal/agent/loop.go
// AgenticLoop.Run: a phase-tracked main loop streaming chunks through a
// channel, persisting assistant/tool messages as they arrive, and bounding
// tool-call iterations, generalized here from a single-session agentic
// loop into one that also registers with OpsRegistry, drives
// StreamingPublisher, and reports through Transport instead of a session
// store's own message log.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"go.opentelemetry.io/otel/trace"

	"github.com/signalmesh/swarmcore/internal/contextbuilder"
	"github.com/signalmesh/swarmcore/internal/convo"
	"github.com/signalmesh/swarmcore/internal/delegation"
	"github.com/signalmesh/swarmcore/internal/llm"
	"github.com/signalmesh/swarmcore/internal/observability"
	"github.com/signalmesh/swarmcore/internal/opsregistry"
	"github.com/signalmesh/swarmcore/internal/roleassign"
	"github.com/signalmesh/swarmcore/internal/streaming"
	"github.com/signalmesh/swarmcore/internal/swarmerr"
	"github.com/signalmesh/swarmcore/internal/toolstore"
	"github.com/signalmesh/swarmcore/internal/tools"
	"github.com/signalmesh/swarmcore/internal/transport"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// MaxToolIterations bounds how many provider round-trips a single turn may
// spend resolving tool calls before giving up, mirroring nexus's
// AgenticLoop's MaxIterations knob.
const MaxToolIterations = 10

// PublishRetries is how many times a terminal update is retried on
// transport failure, per spec.md §4.9's retry policy.
const PublishRetries = 3

// Engine runs one turn per (agent, conversation, triggering event),
// wiring every other component together (spec.md §4.9).
type Engine struct {
	Ops        *opsregistry.Registry
	Convo      *convo.Store
	Builder    *contextbuilder.Builder
	Tools      *tools.Registry
	ToolStore  *toolstore.Store
	Transport  transport.Transport
	Provider   llm.Provider
	Delegation *delegation.Registry

	// Model selects which model to request; empty defers to the
	// provider's default.
	Model string

	Logger *slog.Logger

	// Metrics and Tracer are optional; both are nil-safe, wrapping the
	// suspension points named in SPEC_FULL.md §5.1 with ambient
	// instrumentation that adds no functional behavior of its own.
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// RunTurn drives one complete turn for agentPubkey within conversationID,
// per spec.md §4.9's seven steps.
func (e *Engine) RunTurn(ctx context.Context, conversationID, agentPubkey string, trigger Trigger) error {
	start := time.Now()
	var span trace.Span
	if e.Tracer != nil {
		ctx, span = e.Tracer.TraceTurn(ctx, conversationID, agentPubkey)
		defer span.End()
	}

	err := e.runTurn(ctx, conversationID, agentPubkey, trigger)

	outcome := "complete"
	if err != nil {
		outcome = "error"
		if errors.Is(err, swarmerr.Cancelled) {
			outcome = "interrupted"
		}
		if e.Tracer != nil {
			e.Tracer.RecordError(span, err)
		}
	}
	e.Metrics.RecordTurn(agentPubkey, outcome, time.Since(start).Seconds())

	return err
}

func (e *Engine) runTurn(ctx context.Context, conversationID, agentPubkey string, trigger Trigger) error {
	// Step 1: register with OpsRegistry; a prior turn for this agent and
	// conversation is cancelled.
	op := e.Ops.Start(ctx, agentPubkey, conversationID)
	defer op.Complete()

	c := e.Convo.Get(conversationID)
	if c == nil {
		return swarmerr.System(fmt.Sprintf("execution: unknown conversation %q", conversationID), nil)
	}

	// Step 2: build prompt messages from the trigger's composition mode.
	messages := e.buildMessages(op.Ctx, c, agentPubkey, trigger)

	// Step 3: start execution timing.
	if err := e.Convo.StartExecutionTiming(conversationID); err != nil {
		e.logger().Warn("execution: start timing failed", "conversation", conversationID, "error", err)
	}

	var runErr error
	defer func() {
		// Step 7: always stop timing; OpsRegistry completion happens via
		// the deferred op.Complete() above.
		if err := e.Convo.StopExecutionTiming(conversationID); err != nil {
			e.logger().Warn("execution: stop timing failed", "conversation", conversationID, "error", err)
		}
	}()

	// Deltas are published against ctx, not op.Ctx: a cancelled turn still
	// needs to flush and deliver whatever was buffered (step 6), which
	// would be impossible against an already-cancelled context.
	publisher := streaming.New(streaming.EmitterFunc(func(ev streaming.Event) {
		e.publishDelta(ctx, conversationID, agentPubkey, trigger.Event, ev)
	}))

	sessionID, runErr := e.runToolLoop(op.Ctx, conversationID, agentPubkey, trigger, messages, publisher)

	if op.Ctx.Err() != nil {
		// Step 6: cancellation path.
		publisher.ForceFlush()
		e.publishTerminal(ctx, conversationID, agentPubkey, trigger.Event, "interrupted")
		return swarmerr.Cancelled
	}

	if runErr != nil {
		publisher.ForceFlush()
		e.publishTerminal(ctx, conversationID, agentPubkey, trigger.Event, "interrupted")
		return runErr
	}

	// Step 5: completion path.
	publisher.ForceFlush()
	e.publishTerminal(ctx, conversationID, agentPubkey, trigger.Event, "complete")

	if sessionID != "" && c.Phase != "" {
		err := e.Convo.UpdateAgentState(conversationID, agentPubkey, func(s convo.AgentState) convo.AgentState {
			if s.SessionsByPhase == nil {
				s.SessionsByPhase = make(map[string]string)
			}
			s.SessionsByPhase[c.Phase] = sessionID
			return s
		})
		if err != nil {
			e.logger().Warn("execution: persist session id failed", "conversation", conversationID, "error", err)
		}
	}

	return nil
}

func (e *Engine) buildMessages(ctx context.Context, c *convo.Conversation, agentPubkey string, trigger Trigger) []contextbuilder.Message {
	switch trigger.Kind {
	case TriggerMissedHistory:
		return e.Builder.BuildMessagesWithMissedHistory(ctx, c, agentPubkey, trigger.MissedEvents, trigger.DelegationSummary, trigger.Event, trigger.PhaseInstructions)
	case TriggerDelegationResponses:
		return e.Builder.BuildMessagesWithDelegationResponses(ctx, c, agentPubkey, trigger.Responses, trigger.OriginalRequest, trigger.Event, trigger.PhaseInstructions)
	default:
		return e.Builder.BuildMessages(ctx, c, agentPubkey, trigger.Event, trigger.PhaseInstructions)
	}
}

// runToolLoop drives the provider across as many round-trips as tool calls
// demand, per step 4. It returns the provider session id observed (if any)
// and the first terminal error encountered.
func (e *Engine) runToolLoop(ctx context.Context, conversationID, agentPubkey string, trigger Trigger, initial []contextbuilder.Message, publisher *streaming.Publisher) (string, error) {
	system, convMessages := splitSystemMessages(initial)
	toolDefs := e.toolDefinitions()

	var sessionID string

	for iteration := 0; iteration < MaxToolIterations; iteration++ {
		req := &llm.CompletionRequest{
			Model:    e.Model,
			System:   system,
			Messages: convMessages,
			Tools:    toolDefs,
		}

		stream, err := e.Provider.Complete(ctx, req)
		if err != nil {
			return sessionID, swarmerr.Transport("execution: provider call failed", err)
		}

		outcome := e.drainStream(ctx, conversationID, agentPubkey, trigger.Event, stream, publisher)
		if outcome.err != nil {
			return sessionID, outcome.err
		}
		if ctx.Err() != nil {
			return sessionID, nil
		}
		if outcome.sessionID != "" {
			sessionID = outcome.sessionID
		}

		if len(outcome.toolCalls) == 0 {
			return sessionID, nil
		}

		assistantMsg := llm.CompletionMessage{Role: "assistant", ToolCalls: outcome.toolCalls}
		toolResultsMsg := llm.CompletionMessage{Role: "tool"}
		for _, tc := range outcome.toolCalls {
			result := e.executeTool(ctx, conversationID, agentPubkey, trigger.Event, tc)
			toolResultsMsg.ToolResults = append(toolResultsMsg.ToolResults, result)
		}
		convMessages = append(convMessages, assistantMsg, toolResultsMsg)
	}

	return sessionID, swarmerr.Execution("execution", fmt.Sprintf("exceeded %d tool iterations without completing", MaxToolIterations), nil)
}

type streamOutcome struct {
	toolCalls []llm.ToolCall
	sessionID string
	err       error
}

// drainStream reads chunks until the stream closes, ctx is cancelled, or an
// error chunk arrives, routing text/thinking deltas through publisher and
// collecting tool calls for the caller to execute.
func (e *Engine) drainStream(ctx context.Context, conversationID, agentPubkey string, triggering *event.Event, stream <-chan *llm.CompletionChunk, publisher *streaming.Publisher) streamOutcome {
	var outcome streamOutcome

	for {
		select {
		case <-ctx.Done():
			return outcome
		case chunk, ok := <-stream:
			if !ok {
				return outcome
			}
			if chunk.Error != nil {
				outcome.err = swarmerr.Transport("execution: provider stream error", chunk.Error)
				return outcome
			}
			if chunk.Text != "" {
				publisher.Feed(chunk.Text, false)
			}
			if chunk.Thinking != "" {
				publisher.Feed(chunk.Thinking, true)
			}
			if chunk.ToolCall != nil {
				outcome.toolCalls = append(outcome.toolCalls, *chunk.ToolCall)
			}
			if chunk.SessionID != "" {
				outcome.sessionID = chunk.SessionID
			}
			if chunk.Done {
				return outcome
			}
		}
	}
}

// executeTool invokes a tool call through the validated tools.Registry
// wrapper, persists its full payload through ToolMessageStore, and emits a
// tool-result event, per step 4.
func (e *Engine) executeTool(ctx context.Context, conversationID, agentPubkey string, triggering *event.Event, tc llm.ToolCall) llm.ToolResult {
	start := time.Now()
	var span trace.Span
	if e.Tracer != nil {
		ctx, span = e.Tracer.TraceToolExecution(ctx, tc.Name)
		defer span.End()
	}

	result := e.Tools.Invoke(ctx, tc.Name, json.RawMessage(tc.Arguments))

	content := result.Value
	isError := !result.OK
	if isError && result.Err != nil {
		content = result.Err.Error()
	}

	toolOutcome := "success"
	if isError {
		toolOutcome = "error"
		if result.Err != nil && e.Tracer != nil {
			e.Tracer.RecordError(span, result.Err)
		}
	}
	e.Metrics.RecordToolExecution(tc.Name, toolOutcome, time.Since(start).Seconds())

	evt := event.Event{
		ID:        uuid.NewString(),
		Author:    agentPubkey,
		CreatedAt: time.Now(),
		Kind:      event.KindToolRecord,
		Content:   summarizeToolCall(tc, content),
		Tags:      event.Tags{{event.TagTool, tc.Name}},
	}
	attachThread(&evt, triggering)

	if e.ToolStore != nil {
		payload := []toolstore.Message{
			{Role: "assistant", Content: string(tc.Arguments)},
			{Role: "tool", Content: content},
		}
		if err := e.ToolStore.Save(ctx, evt.ID, payload); err != nil {
			e.logger().Warn("execution: tool store save failed", "event", evt.ID, "error", err)
		}
	}

	if err := e.Convo.UpsertEvent(conversationID, evt); err != nil {
		e.logger().Warn("execution: upsert tool event failed", "event", evt.ID, "error", err)
	}

	// Intermediate publish failures are logged and dropped, not retried
	// (spec.md §4.9's retry policy).
	if err := e.publish(ctx, &evt); err != nil {
		e.logger().Warn("execution: publish tool event failed", "event", evt.ID, "error", err)
	}

	return llm.ToolResult{ToolCallID: tc.ID, Content: content, IsError: isError}
}

// publish wraps Transport.Publish with the span and duration metric for the
// transport-call suspension point named in SPEC_FULL.md §5.1. A nil
// Transport is a no-op, matching every other Transport-guarded call site.
func (e *Engine) publish(ctx context.Context, evt *event.Event) error {
	if e.Transport == nil {
		return nil
	}

	start := time.Now()
	var span trace.Span
	if e.Tracer != nil {
		ctx, span = e.Tracer.TraceTransportPublish(ctx, evt.Kind)
		defer span.End()
	}

	err := e.Transport.Publish(ctx, evt)

	outcome := "success"
	if err != nil {
		outcome = "error"
		if e.Tracer != nil {
			e.Tracer.RecordError(span, err)
		}
	}
	e.Metrics.RecordTransportPublish(fmt.Sprintf("%d", evt.Kind), outcome, time.Since(start).Seconds())

	return err
}

func summarizeToolCall(tc llm.ToolCall, result string) string {
	return fmt.Sprintf("tool %s executed", tc.Name)
}

// publishDelta turns one flushed StreamingPublisher event into an
// intermediate update, published best-effort.
func (e *Engine) publishDelta(ctx context.Context, conversationID, agentPubkey string, triggering *event.Event, ev streaming.Event) {
	if e.Transport == nil {
		return
	}
	evt := event.Event{
		ID:        uuid.NewString(),
		Author:    agentPubkey,
		CreatedAt: time.Now(),
		Kind:      event.KindNote,
		Content:   ev.Text,
		Tags:      event.Tags{{event.TagStatus, "streaming"}},
	}
	if ev.Reasoning {
		evt.Tags = append(evt.Tags, event.Tag{event.TagReasoning})
	}
	attachThread(&evt, triggering)

	if err := e.publish(ctx, &evt); err != nil {
		e.logger().Warn("execution: publish delta failed", "conversation", conversationID, "error", err)
	}
}

// publishTerminal publishes a "complete"/"interrupted" update, retrying up
// to PublishRetries times with exponential backoff per spec.md §4.9.
func (e *Engine) publishTerminal(ctx context.Context, conversationID, agentPubkey string, triggering *event.Event, status string) {
	if e.Transport == nil {
		return
	}
	evt := event.Event{
		ID:        uuid.NewString(),
		Author:    agentPubkey,
		CreatedAt: time.Now(),
		Kind:      event.KindNote,
		Tags:      event.Tags{{event.TagStatus, status}},
	}
	attachThread(&evt, triggering)

	var lastErr error
	for attempt := 0; attempt <= PublishRetries; attempt++ {
		if err := e.publish(ctx, &evt); err == nil {
			if err := e.Convo.UpsertEvent(conversationID, evt); err != nil {
				e.logger().Warn("execution: upsert terminal event failed", "event", evt.ID, "error", err)
			}
			return
		} else {
			lastErr = err
		}
		if attempt == PublishRetries {
			break
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			attempt = PublishRetries
		case <-timer.C:
		}
	}
	e.logger().Error("execution: terminal publish exhausted retries", "conversation", conversationID, "status", status, "error", lastErr)
}

func attachThread(evt *event.Event, triggering *event.Event) {
	if triggering == nil {
		return
	}
	root, hasRoot := triggering.RootID()
	if !hasRoot {
		root = triggering.ID
	}
	evt.Tags = append(evt.Tags, event.Tag{event.TagRoot, root}, event.Tag{event.TagParent, triggering.ID})
}

func (e *Engine) toolDefinitions() []llm.ToolDefinition {
	if e.Tools == nil {
		return nil
	}
	list := e.Tools.List()
	out := make([]llm.ToolDefinition, 0, len(list))
	for _, t := range list {
		out = append(out, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Schema:      t.Schema(),
		})
	}
	return out
}

// splitSystemMessages extracts every system-role message's content (joined
// in order) and converts the remainder into provider messages, since the
// provider vocabulary only accepts "user"/"assistant"/"tool" roles.
func splitSystemMessages(messages []contextbuilder.Message) (string, []llm.CompletionMessage) {
	var system string
	out := make([]llm.CompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == roleassign.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		out = append(out, llm.CompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return system, out
}

// DelegationResumeHook returns a delegation.ResumeHook that resumes
// agentPubkey's turn within conversationID once a delegation the agent
// issued completes, using TriggerDelegationResponses per the data flow in
// spec.md §1 ("when all targeted responses arrive, the registry signals
// ExecutionEngine to resume with a delegation-responses message block").
// Background runs are fire-and-forget from the hook's perspective, matching
// delegation.Registry's own async resumeHook invocation.
func (e *Engine) DelegationResumeHook(conversationID, agentPubkey string) delegation.ResumeHook {
	return func(record delegation.Record) {
		if record.Status != delegation.StatusComplete {
			return
		}

		responses := make([]contextbuilder.DelegationResponse, 0, len(record.Responses))
		for agent, evt := range record.Responses {
			responses = append(responses, contextbuilder.DelegationResponse{AgentPubkey: agent, Event: evt})
		}

		trigger := Trigger{
			Kind:            TriggerDelegationResponses,
			Responses:       responses,
			OriginalRequest: record.OriginalRequest,
		}

		if err := e.RunTurn(context.Background(), conversationID, agentPubkey, trigger); err != nil {
			e.logger().Warn("execution: delegation resume turn failed", "conversation", conversationID, "agent", agentPubkey, "error", err)
		}
	}
}
