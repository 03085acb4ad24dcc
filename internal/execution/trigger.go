package execution

import (
	"github.com/signalmesh/swarmcore/internal/contextbuilder"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// TriggerKind selects which of AgentContextBuilder's three composition
// modes a turn uses, per spec.md §4.9 step 2.
type TriggerKind int

const (
	// TriggerFresh is an inbound user/agent message arriving normally.
	TriggerFresh TriggerKind = iota
	// TriggerMissedHistory resumes an agent after it missed some history.
	TriggerMissedHistory
	// TriggerDelegationResponses resumes a delegating agent once every
	// targeted response has arrived.
	TriggerDelegationResponses
)

// Trigger describes why a turn is running and carries the payload each
// composition mode needs.
type Trigger struct {
	Kind TriggerKind

	// Event is the triggering event (the new message, or the delegation's
	// own prior request for the resume modes). It may be nil:
	// Engine.DelegationResumeHook builds its Trigger without one.
	Event *event.Event

	// PhaseInstructions, when non-empty, appends the phase-transition
	// preamble.
	PhaseInstructions string

	// MissedEvents and DelegationSummary apply to TriggerMissedHistory.
	MissedEvents      []event.Event
	DelegationSummary string

	// Responses and OriginalRequest apply to TriggerDelegationResponses.
	Responses       []contextbuilder.DelegationResponse
	OriginalRequest string
}
