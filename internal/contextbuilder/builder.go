// Package contextbuilder assembles the ordered prompt message stream for
// one agent turn out of a conversation's threaded history, grounded on
// nexus's internal/multiagent/context.go ContextManager.BuildSharedContext
// orchestration idiom (there composing a handoff's shared context out of
// filtered/summarized messages in several stages; here composing a single
// agent's turn out of thread-filtered, content-filtered, role-assigned
// events).
package contextbuilder

import (
	"context"
	"fmt"
	"strings"

	"github.com/signalmesh/swarmcore/internal/budgeter"
	"github.com/signalmesh/swarmcore/internal/contentfilter"
	"github.com/signalmesh/swarmcore/internal/convo"
	"github.com/signalmesh/swarmcore/internal/entityinline"
	"github.com/signalmesh/swarmcore/internal/roleassign"
	"github.com/signalmesh/swarmcore/internal/threadpath"
	"github.com/signalmesh/swarmcore/internal/toolstore"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// Message is one entry in the assembled prompt stream.
type Message struct {
	Role    roleassign.Role
	Content string
}

// NameResolver resolves a pubkey to a display name, satisfied by
// *identity.Resolver.
type NameResolver interface {
	Name(pubkey string) string
}

// Builder implements spec.md §4.5's three composition modes.
type Builder struct {
	Assigner  *roleassign.Assigner
	Inliner   *entityinline.Inliner
	ToolStore *toolstore.Store
	Names     NameResolver
}

// New constructs a Builder from its collaborators.
func New(assigner *roleassign.Assigner, inliner *entityinline.Inliner, store *toolstore.Store, names NameResolver) *Builder {
	return &Builder{Assigner: assigner, Inliner: inliner, ToolStore: store, Names: names}
}

// PhasePreambleNamed renders the phase preamble using an explicit phase
// name, per spec.md §4.5 step 3 ("=== CURRENT PHASE: <PHASE_UPPER> ===").
func PhasePreambleNamed(phase, phaseInstructions string) Message {
	return Message{
		Role:    roleassign.RoleSystem,
		Content: fmt.Sprintf("=== CURRENT PHASE: %s ===\n\n%s", strings.ToUpper(phase), phaseInstructions),
	}
}

// processEvent applies the skip/strip/inline/role-assign pipeline shared by
// all three composition modes to a single non-tool event. It returns
// ok=false when the event contributes zero messages.
func (b *Builder) processEvent(ctx context.Context, e event.Event, viewer, convID string) (Message, bool) {
	if e.Content == "" {
		return Message{}, false
	}
	if contentfilter.HasReasoningTag(e) || contentfilter.IsOnlyThinking(e.Content) {
		return Message{}, false
	}
	stripped := contentfilter.Strip(e.Content)
	inlined := b.Inliner.Inline(ctx, stripped)
	msg := b.Assigner.Assign(e, viewer, convID, inlined)
	return Message{Role: msg.Role, Content: msg.Content}, true
}

// processEventWithTool applies spec.md §4.5 step 2's tool-aware branch: an
// event carrying the "tool" tag authored by viewer loads its structured
// tool messages verbatim, truncated per spec.md §4.6's ToolOutputBudgeter
// based on how deeply the event is buried in the message list; a tool
// event from another agent contributes nothing; everything else falls
// through to processEvent.
func (b *Builder) processEventWithTool(ctx context.Context, e event.Event, viewer, convID string, position, total int) ([]Message, bool) {
	if !e.IsToolRecord() {
		msg, ok := b.processEvent(ctx, e, viewer, convID)
		if !ok {
			return nil, false
		}
		return []Message{msg}, true
	}

	if e.Author != viewer {
		return nil, false
	}

	if b.ToolStore != nil {
		stored, found, err := b.ToolStore.Load(ctx, e.ID)
		if err == nil && found && len(stored) > 0 {
			parts := make([]budgeter.Part, len(stored))
			for i, m := range stored {
				parts[i] = budgeter.Part{Output: m.Content}
			}
			decision := budgeter.Decide(parts, position, total, e.ID)

			out := make([]Message, len(stored))
			for i, m := range stored {
				out[i] = Message{Role: roleassign.Role(m.Role), Content: decision.Parts[i].Output}
			}
			return out, true
		}
	}

	msg, ok := b.processEvent(ctx, e, viewer, convID)
	if !ok {
		return nil, false
	}
	return []Message{msg}, true
}

// BuildMessages implements spec.md §4.5's buildMessages.
func (b *Builder) BuildMessages(ctx context.Context, c *convo.Conversation, viewer string, triggering *event.Event, phaseInstructions string) []Message {
	events := threadpath.ThreadEvents(c.History, triggering)

	total := len(events)
	var out []Message
	for i, e := range events {
		if triggering != nil && e.ID == triggering.ID {
			break
		}
		msgs, ok := b.processEventWithTool(ctx, e, viewer, c.ID, i, total)
		if ok {
			out = append(out, msgs...)
		}
	}

	if phaseInstructions != "" {
		out = append(out, PhasePreambleNamed(c.Phase, phaseInstructions))
	}

	if triggering != nil {
		if msg, ok := b.processEvent(ctx, *triggering, viewer, c.ID); ok {
			out = append(out, msg)
		}
	}

	return out
}

// BuildMessagesWithMissedHistory implements spec.md §4.5's
// buildMessagesWithMissedHistory.
func (b *Builder) BuildMessagesWithMissedHistory(ctx context.Context, c *convo.Conversation, viewer string, missedEvents []event.Event, delegationSummary string, triggering *event.Event, phaseInstructions string) []Message {
	candidates := missedEvents
	if triggering != nil {
		candidates = threadpath.FilterToThread(c.History, *triggering, missedEvents)
	}

	var remaining []event.Event
	for _, e := range candidates {
		if contentfilter.HasReasoningTag(e) {
			continue
		}
		remaining = append(remaining, e)
	}

	var out []Message
	if len(remaining) > 0 {
		var sb strings.Builder
		sb.WriteString("=== MESSAGES WHILE YOU WERE AWAY ===\n\n")
		if delegationSummary != "" {
			sb.WriteString(fmt.Sprintf("**Previous context**: %s\n\n", delegationSummary))
		}
		for _, e := range remaining {
			label := b.senderLabel(e, viewer)
			content := b.renderMissedContent(ctx, e)
			sb.WriteString(fmt.Sprintf("%s:\n%s\n\n", label, content))
		}
		sb.WriteString("=== END OF HISTORY ===\nRespond to the most recent user message above, considering the context.\n\n")
		out = append(out, Message{Role: roleassign.RoleSystem, Content: sb.String()})
	}

	if phaseInstructions != "" {
		out = append(out, PhasePreambleNamed(c.Phase, phaseInstructions))
	}

	if triggering != nil {
		if msg, ok := b.processEvent(ctx, *triggering, viewer, c.ID); ok {
			out = append(out, msg)
		}
	}

	return out
}

func (b *Builder) renderMissedContent(ctx context.Context, e event.Event) string {
	stripped := contentfilter.Strip(e.Content)
	return b.Inliner.Inline(ctx, stripped)
}

// senderLabel implements spec.md §4.5's SENDER_LABEL: "🟢 USER" for events
// from a human user (anyone not a registered project agent), "💬 You (NAME)"
// for the viewing agent's own prior events, "💬 NAME" for other agents.
func (b *Builder) senderLabel(e event.Event, viewer string) string {
	if b.Assigner != nil && b.Assigner.Agents != nil && !b.Assigner.Agents.IsProjectAgent(e.Author) {
		return "🟢 USER"
	}
	if e.Author == viewer {
		return fmt.Sprintf("💬 You (%s)", b.Names.Name(viewer))
	}
	return "💬 " + b.Names.Name(e.Author)
}

// DelegationResponse pairs a responding agent's pubkey with their event.
type DelegationResponse struct {
	AgentPubkey string
	Event       event.Event
}

// BuildMessagesWithDelegationResponses implements spec.md §4.5's
// buildMessagesWithDelegationResponses.
func (b *Builder) BuildMessagesWithDelegationResponses(ctx context.Context, c *convo.Conversation, viewer string, responses []DelegationResponse, originalRequest string, triggering *event.Event, phaseInstructions string) []Message {
	var sb strings.Builder
	sb.WriteString("=== DELEGATE RESPONSES RECEIVED ===\n\n")
	sb.WriteString(fmt.Sprintf("You previously delegated the following request to %d agent(s):\n\"%s\"\n\n", len(responses), originalRequest))
	sb.WriteString("Here are all the responses:\n\n")

	for _, r := range responses {
		if contentfilter.HasReasoningTag(r.Event) || contentfilter.IsOnlyThinking(r.Event.Content) {
			continue
		}
		stripped := contentfilter.Strip(r.Event.Content)
		name := b.Names.Name(r.AgentPubkey)
		sb.WriteString(fmt.Sprintf("### Response from %s:\n%s\n\n", name, stripped))
	}

	sb.WriteString("=== END OF DELEGATE RESPONSES ===\n\nNow process these responses and complete your task.")

	out := []Message{{Role: roleassign.RoleSystem, Content: sb.String()}}

	if phaseInstructions != "" {
		out = append(out, PhasePreambleNamed(c.Phase, phaseInstructions))
	}

	if triggering != nil {
		if msg, ok := b.processEvent(ctx, *triggering, viewer, c.ID); ok {
			out = append(out, msg)
		}
	}

	return out
}
