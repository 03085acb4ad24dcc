package convo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// keyMutex is a per-key lock held inside a sync.Map entry, grounded on
// nexus's internal/sessions/write_lock.go SessionLocker pattern.
type keyMutex struct {
	mu sync.Mutex
}

// Persistence is the opaque adapter Store delegates durable state to, per
// spec.md §6.
type Persistence interface {
	Initialize(ctx context.Context) error
	Save(ctx context.Context, snapshot Snapshot) error
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, id string) (Snapshot, bool, error)
}

// Store is the in-memory map conversationId → Conversation, guarded by a
// per-conversation lock, with a write-behind persistence hook (spec.md
// §4.8).
type Store struct {
	locks sync.Map // map[string]*keyMutex

	mu            sync.RWMutex
	conversations map[string]*Conversation

	persistence Persistence
}

// New creates a Store backed by persistence. A nil persistence disables
// durability; all state then lives only in memory.
func New(persistence Persistence) *Store {
	return &Store{
		conversations: make(map[string]*Conversation),
		persistence:   persistence,
	}
}

func (s *Store) lockFor(conversationID string) *keyMutex {
	if m, ok := s.locks.Load(conversationID); ok {
		return m.(*keyMutex)
	}
	actual, _ := s.locks.LoadOrStore(conversationID, &keyMutex{})
	return actual.(*keyMutex)
}

// withConversation serializes fn against conversationID's lock, creating
// the Conversation on first use.
func (s *Store) withConversation(conversationID string, fn func(c *Conversation) error) error {
	lock := s.lockFor(conversationID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	s.mu.Lock()
	c, ok := s.conversations[conversationID]
	if !ok {
		c = NewConversation(conversationID)
		s.conversations[conversationID] = c
	}
	s.mu.Unlock()

	return fn(c)
}

// UpsertEvent appends e to conversationID's history if its id is new;
// idempotent on duplicates (spec.md §4.8).
func (s *Store) UpsertEvent(conversationID string, e event.Event) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		if c.HasEvent(e.ID) {
			return nil
		}
		c.History = append(c.History, e)
		c.processedIDs[e.ID] = struct{}{}
		return nil
	})
}

// Get returns a snapshot-safe copy of the conversation, or nil if unknown.
// The copy is taken under conversationID's per-conversation lock so it never
// tears against a concurrent UpsertEvent/UpdateAgentState/UpdatePhase/
// UpdateMetadata call.
func (s *Store) Get(conversationID string) *Conversation {
	lock := s.lockFor(conversationID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	s.mu.RLock()
	c, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	return cloneConversation(c)
}

// cloneConversation returns a deep-enough copy of c for safe hand-off to
// callers outside the Store's lock. Must be called while holding c's
// per-conversation lock.
func cloneConversation(c *Conversation) *Conversation {
	out := &Conversation{
		ID:            c.ID,
		Title:         c.Title,
		Phase:         c.Phase,
		History:       append([]event.Event(nil), c.History...),
		AgentStates:   make(map[string]AgentState, len(c.AgentStates)),
		Metadata:      make(map[string]any, len(c.Metadata)),
		ExecutionTime: c.ExecutionTime,
		TodosByAgent:  make(map[string][]TodoItem, len(c.TodosByAgent)),
		PhaseHistory:  append([]PhaseTransition(nil), c.PhaseHistory...),
		processedIDs:  make(map[string]struct{}, len(c.processedIDs)),
		lastProcessed: c.lastProcessed,
	}
	for k, v := range c.AgentStates {
		out.AgentStates[k] = v.Clone()
	}
	for k, v := range c.Metadata {
		out.Metadata[k] = v
	}
	for k, items := range c.TodosByAgent {
		out.TodosByAgent[k] = append([]TodoItem(nil), items...)
	}
	for id := range c.processedIDs {
		out.processedIDs[id] = struct{}{}
	}
	return out
}

// AgentStateDelta is a partial update applied under the conversation's lock.
type AgentStateDelta func(AgentState) AgentState

// UpdateAgentState applies delta to agentSlug's state within conversationID,
// per spec.md §4.8.
func (s *Store) UpdateAgentState(conversationID, agentSlug string, delta AgentStateDelta) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		current, ok := c.AgentStates[agentSlug]
		if !ok {
			current = NewAgentState()
		}
		c.AgentStates[agentSlug] = delta(current)
		return nil
	})
}

// UpdatePhase transitions conversationID's phase, appending an audit entry.
func (s *Store) UpdatePhase(conversationID, phase, reason, actorPubkey, actorName string) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		from := c.Phase
		c.Phase = phase
		c.PhaseHistory = append(c.PhaseHistory, PhaseTransition{
			From:        from,
			To:          phase,
			Reason:      reason,
			ActorPubkey: actorPubkey,
			ActorName:   actorName,
			At:          time.Now(),
		})
		return nil
	})
}

// UpdateMetadata merges delta into conversationID's metadata map.
func (s *Store) UpdateMetadata(conversationID string, delta map[string]any) error {
	return s.withConversation(conversationID, func(c *Conversation) error {
		for k, v := range delta {
			c.Metadata[k] = v
		}
		return nil
	})
}

// GetTodos returns agentPubkey's todo list within conversationID.
func (s *Store) GetTodos(conversationID, agentPubkey string) []TodoItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil
	}
	items := c.TodosByAgent[agentPubkey]
	out := make([]TodoItem, len(items))
	copy(out, items)
	return out
}

// Persist saves conversationID's current state through the configured
// Persistence adapter. A nil Persistence is a no-op.
func (s *Store) Persist(ctx context.Context, conversationID string) error {
	if s.persistence == nil {
		return nil
	}
	s.mu.RLock()
	c, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if !ok {
		return swarmerr.System(fmt.Sprintf("convo: unknown conversation %q", conversationID), nil)
	}
	return s.persistence.Save(ctx, snapshotOf(c))
}

// Restore loads conversationID from Persistence into memory, replacing any
// existing in-memory state for that id.
func (s *Store) Restore(ctx context.Context, conversationID string) error {
	if s.persistence == nil {
		return swarmerr.System("convo: no persistence configured", nil)
	}
	snap, ok, err := s.persistence.Load(ctx, conversationID)
	if err != nil {
		return err
	}
	if !ok {
		return swarmerr.System(fmt.Sprintf("convo: no snapshot for %q", conversationID), nil)
	}

	lock := s.lockFor(conversationID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	c := fromSnapshot(snap)
	s.mu.Lock()
	s.conversations[conversationID] = c
	s.mu.Unlock()
	return nil
}

func snapshotOf(c *Conversation) Snapshot {
	ids := make([]string, 0, len(c.processedIDs))
	for id := range c.processedIDs {
		ids = append(ids, id)
	}
	return Snapshot{
		ID:                 c.ID,
		Title:              c.Title,
		Phase:              c.Phase,
		History:            append([]event.Event(nil), c.History...),
		AgentStates:        c.AgentStates,
		Metadata:           c.Metadata,
		ExecutionTime:      c.ExecutionTime,
		TodosByAgent:       c.TodosByAgent,
		PhaseHistory:       c.PhaseHistory,
		ProcessedEventIDs:  ids,
		LastProcessedIndex: c.lastProcessed,
	}
}

func fromSnapshot(snap Snapshot) *Conversation {
	c := NewConversation(snap.ID)
	c.Title = snap.Title
	c.Phase = snap.Phase
	c.History = append([]event.Event(nil), snap.History...)
	if snap.AgentStates != nil {
		c.AgentStates = snap.AgentStates
	}
	if snap.Metadata != nil {
		c.Metadata = snap.Metadata
	}
	c.ExecutionTime = snap.ExecutionTime
	if snap.TodosByAgent != nil {
		c.TodosByAgent = snap.TodosByAgent
	}
	c.PhaseHistory = snap.PhaseHistory
	for _, id := range snap.ProcessedEventIDs {
		c.processedIDs[id] = struct{}{}
	}
	c.lastProcessed = snap.LastProcessedIndex
	return c
}
