// Package delegation tracks outbound delegations between agents,
// correlating inbound responses and enforcing at-most-once completion,
// grounded on nexus's internal/multiagent/subagent_registry.go
// SubagentRegistry idiom (there tracking child-agent run records keyed by
// run id with an OnRunComplete callback and a timeout sweep; here tracking
// DelegationRecords keyed by delegation id with a resume hook fired at
// most once, per spec.md §9.1's time.AfterFunc Open Question resolution).
package delegation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// Status is a DelegationRecord's lifecycle state, per spec.md §3.
type Status string

const (
	StatusPending   Status = "pending"
	StatusComplete  Status = "complete"
	StatusTimedOut  Status = "timed-out"
	StatusCancelled Status = "cancelled"
)

// ResumeHook is invoked at most once per delegation, when it transitions
// out of pending (spec.md §4.7).
type ResumeHook func(record Record)

// Record is a read-only snapshot of a DelegationRecord returned to
// RoleAssigner and ExecutionEngine callers.
type Record struct {
	DelegationID    string
	DelegatingAgent string
	Targets         []string
	OriginalRequest string
	StartedAt       time.Time
	TimeoutAt       time.Time
	Responses       map[string]event.Event
	Status          Status
}

type delegationRecord struct {
	mu sync.Mutex

	delegationID    string
	delegatingAgent string
	conversationID  string
	targets         map[string]struct{}
	originalRequest string
	startedAt       time.Time
	timeoutAt       time.Time
	responses       map[string]event.Event
	status          Status
	resumeHook      ResumeHook
	resumed         bool
	timer           *time.Timer
}

func (d *delegationRecord) snapshot() Record {
	targets := make([]string, 0, len(d.targets))
	for t := range d.targets {
		targets = append(targets, t)
	}
	responses := make(map[string]event.Event, len(d.responses))
	for k, v := range d.responses {
		responses[k] = v
	}
	return Record{
		DelegationID:    d.delegationID,
		DelegatingAgent: d.delegatingAgent,
		Targets:         targets,
		OriginalRequest: d.originalRequest,
		StartedAt:       d.startedAt,
		TimeoutAt:       d.timeoutAt,
		Responses:       responses,
		Status:          d.status,
	}
}

// fireResumeOnce invokes resumeHook exactly once for this record's lifetime.
// Caller must hold d.mu.
func (d *delegationRecord) fireResumeOnce() {
	if d.resumed || d.resumeHook == nil {
		return
	}
	d.resumed = true
	snap := d.snapshot()
	go d.resumeHook(snap)
}

// Registry implements spec.md §4.7's DelegationRegistry: a set of
// DelegationRecords keyed by delegationId, plus an index from
// (conversationId, delegatingAgent, respondingAgent) for O(1) lookup from
// RoleAssigner.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*delegationRecord
	index   map[string]string // conversationId|delegatingAgent|respondingAgent -> delegationId
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		records: make(map[string]*delegationRecord),
		index:   make(map[string]string),
	}
}

func indexKey(conversationID, delegatingAgent, respondingAgent string) string {
	return conversationID + "|" + delegatingAgent + "|" + respondingAgent
}

// Register creates a pending DelegationRecord and arms its timeout via
// time.AfterFunc. It returns the new delegation id.
func (r *Registry) Register(conversationID, delegatingAgent string, targets []string, originalRequest string, timeout time.Duration, resumeHook ResumeHook) (string, error) {
	if len(targets) == 0 {
		return "", swarmerr.Validation("targets", "delegation must have at least one target")
	}

	now := time.Now()
	targetSet := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		targetSet[t] = struct{}{}
	}

	rec := &delegationRecord{
		delegationID:    uuid.NewString(),
		delegatingAgent: delegatingAgent,
		conversationID:  conversationID,
		targets:         targetSet,
		originalRequest: originalRequest,
		startedAt:       now,
		timeoutAt:       now.Add(timeout),
		responses:       make(map[string]event.Event),
		status:          StatusPending,
		resumeHook:      resumeHook,
	}

	r.mu.Lock()
	r.records[rec.delegationID] = rec
	for target := range targetSet {
		r.index[indexKey(conversationID, delegatingAgent, target)] = rec.delegationID
	}
	r.mu.Unlock()

	rec.timer = time.AfterFunc(timeout, func() {
		r.timeoutDelegation(rec.delegationID)
	})

	return rec.delegationID, nil
}

// RecordResponse implements spec.md §4.7's recordResponse: locates the
// record for (conversationId, delegatingAgent, fromAgent); if pending and
// fromAgent is a target, stores the response (first-response-wins per
// target, per spec.md §9's out-of-order tolerance); if all targets have
// responded, transitions to complete and fires the resume hook. Returns ""
// if no such delegation is registered.
func (r *Registry) RecordResponse(conversationID, delegatingAgent, fromAgent string, e event.Event) Status {
	r.mu.RLock()
	delegationID, ok := r.index[indexKey(conversationID, delegatingAgent, fromAgent)]
	r.mu.RUnlock()
	if !ok {
		return ""
	}

	r.mu.RLock()
	rec, ok := r.records[delegationID]
	r.mu.RUnlock()
	if !ok {
		return ""
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.status != StatusPending {
		return rec.status
	}
	if _, isTarget := rec.targets[fromAgent]; !isTarget {
		return rec.status
	}
	if _, already := rec.responses[fromAgent]; already {
		// Extra response from a target that already answered: ignored with a
		// warning at the caller's discretion; first response wins.
		return rec.status
	}

	rec.responses[fromAgent] = e

	if len(rec.responses) >= len(rec.targets) {
		rec.status = StatusComplete
		if rec.timer != nil {
			rec.timer.Stop()
		}
		rec.fireResumeOnce()
	}

	return rec.status
}

func (r *Registry) timeoutDelegation(delegationID string) {
	r.mu.RLock()
	rec, ok := r.records[delegationID]
	r.mu.RUnlock()
	if !ok {
		return
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.status != StatusPending {
		return
	}
	rec.status = StatusTimedOut
	rec.fireResumeOnce()
}

// Cancel administratively cancels a pending delegation; it never fires the
// resume hook (spec.md §4.7).
func (r *Registry) Cancel(delegationID string) error {
	r.mu.RLock()
	rec, ok := r.records[delegationID]
	r.mu.RUnlock()
	if !ok {
		return swarmerr.System(fmt.Sprintf("delegation: unknown id %q", delegationID), nil)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.status != StatusPending {
		return nil
	}
	if rec.timer != nil {
		rec.timer.Stop()
	}
	rec.status = StatusCancelled
	rec.resumed = true // administrative cancellation never fires the hook
	return nil
}

// HasPending reports whether a pending delegation exists from
// delegatingAgent to respondent within conversationID, satisfying
// roleassign.DelegationLookup.
func (r *Registry) HasPending(conversationID, delegatingAgent, respondent string) bool {
	r.mu.RLock()
	delegationID, ok := r.index[indexKey(conversationID, delegatingAgent, respondent)]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	r.mu.RLock()
	rec, ok := r.records[delegationID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.status == StatusPending
}

// Get returns a snapshot of the delegation record, if known.
func (r *Registry) Get(delegationID string) (Record, bool) {
	r.mu.RLock()
	rec, ok := r.records[delegationID]
	r.mu.RUnlock()
	if !ok {
		return Record{}, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.snapshot(), true
}
