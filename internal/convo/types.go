// Package convo holds the authoritative in-memory conversation and
// per-agent state, grounded on nexus's internal/sessions package (its
// Conversation-equivalent is a Session; this package generalizes the same
// per-key locking and persistence-adapter structure to the threaded,
// multi-agent Conversation shape spec.md §3 defines).
package convo

import (
	"time"

	"github.com/signalmesh/swarmcore/pkg/event"
)

// TodoStatus is the lifecycle state of a TodoItem.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoDone       TodoStatus = "done"
	TodoSkipped    TodoStatus = "skipped"
)

// TodoItem is one entry in an agent's per-conversation todo list.
type TodoItem struct {
	ID          string
	Title       string
	Description string
	Status      TodoStatus
	SkipReason  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExecutionTime tracks cumulative wall-clock spent executing turns for a
// conversation.
type ExecutionTime struct {
	TotalSeconds float64
	IsActive     bool
	LastUpdated  time.Time
}

// AgentState is per-conversation, per-agent mutable state (spec.md §3).
// Mutation is serialized by Store.
type AgentState struct {
	LastProcessedMessageIndex int
	LastSeenPhase             string
	SessionsByPhase           map[string]string
	Scratch                   map[string]any
}

// NewAgentState returns a zero-value AgentState with initialized maps.
func NewAgentState() AgentState {
	return AgentState{
		SessionsByPhase: make(map[string]string),
		Scratch:         make(map[string]any),
	}
}

// Clone returns a deep-enough copy of s for safe hand-off to callers outside
// the Store's lock.
func (s AgentState) Clone() AgentState {
	out := s
	out.SessionsByPhase = make(map[string]string, len(s.SessionsByPhase))
	for k, v := range s.SessionsByPhase {
		out.SessionsByPhase[k] = v
	}
	out.Scratch = make(map[string]any, len(s.Scratch))
	for k, v := range s.Scratch {
		out.Scratch[k] = v
	}
	return out
}

// PhaseTransition records a single phase change for the audit trail.
type PhaseTransition struct {
	From, To    string
	Reason      string
	ActorPubkey string
	ActorName   string
	At          time.Time
}

// Conversation is the authoritative state of one threaded event history,
// per spec.md §3. All mutation goes through Store.
type Conversation struct {
	ID             string
	Title          string
	Phase          string
	History        []event.Event
	AgentStates    map[string]AgentState
	Metadata       map[string]any
	ExecutionTime  ExecutionTime
	TodosByAgent   map[string][]TodoItem
	PhaseHistory   []PhaseTransition
	processedIDs   map[string]struct{}
	lastProcessed  int
}

// NewConversation creates an empty Conversation with id.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:            id,
		AgentStates:   make(map[string]AgentState),
		Metadata:      make(map[string]any),
		TodosByAgent:  make(map[string][]TodoItem),
		processedIDs:  make(map[string]struct{}),
		lastProcessed: 0,
	}
}

// HasEvent reports whether id is already present in History.
func (c *Conversation) HasEvent(id string) bool {
	_, ok := c.processedIDs[id]
	return ok
}

// Snapshot is the persisted representation of a Conversation, per spec.md
// §6: mirrors the in-memory shape plus processedEventIds/lastProcessedIndex
// so restarts resume correctly.
type Snapshot struct {
	ID                 string
	Title              string
	Phase              string
	History            []event.Event
	AgentStates        map[string]AgentState
	Metadata           map[string]any
	ExecutionTime      ExecutionTime
	TodosByAgent       map[string][]TodoItem
	PhaseHistory       []PhaseTransition
	ProcessedEventIDs  []string
	LastProcessedIndex int
}
