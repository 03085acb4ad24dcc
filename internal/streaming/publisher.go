// Package streaming implements the single-agent, cooperative delta
// publisher described in spec.md §4.10, grounded on nexus's
// internal/agent/loop.go channel-of-ResponseChunk emission idiom (there a
// direct send per delta with no batching; here batched behind a
// minimum-interval/maximum-latency scheduler before reaching the same kind
// of emission channel).
package streaming

import (
	"sync"
	"time"
)

// MinInterval is the minimum spacing between consecutive flushes once a
// publish has occurred (spec.md §4.10).
const MinInterval = 1000 * time.Millisecond

// MaxLatency caps the flush delay Feed schedules once a publish has
// occurred (spec.md §4.10). Before the first publish each Feed reschedules
// the pending flush MinInterval out, so deltas fed less than MinInterval
// apart keep postponing it.
const MaxLatency = 1500 * time.Millisecond

// Event is one emission: Reasoning distinguishes the reasoning-buffer
// flush from the regular-buffer flush within the same feed batch.
type Event struct {
	Text      string
	Reasoning bool
}

// Emitter receives flushed events, in feed order.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit implements Emitter.
func (f EmitterFunc) Emit(e Event) { f(e) }

// nowFunc and afterFunc are overridable for deterministic tests.
var (
	nowFunc   = time.Now
	afterFunc = time.AfterFunc
)

// Publisher buffers streamed text and reasoning deltas and flushes them to
// an Emitter on the minimum-interval/maximum-latency schedule of spec.md
// §4.10.
type Publisher struct {
	mu sync.Mutex

	emitter Emitter

	regular   strBuilder
	reasoning strBuilder

	lastPublish    time.Time
	hasPublished   bool
	pendingTimer   *time.Timer
	pendingTimerOn bool
}

// strBuilder avoids pulling in strings.Builder's copy-protection subtleties
// across resets; a plain string accumulator is enough at this size.
type strBuilder struct{ s string }

func (b *strBuilder) append(s string)   { b.s += s }
func (b *strBuilder) empty() bool       { return b.s == "" }
func (b *strBuilder) drain() string     { s := b.s; b.s = ""; return s }

// New creates a Publisher emitting flushed events to emitter.
func New(emitter Emitter) *Publisher {
	return &Publisher{emitter: emitter}
}

// Feed appends delta to the regular or reasoning buffer and schedules or
// performs a flush per spec.md §4.10's feed operation.
func (p *Publisher) Feed(delta string, isReasoning bool) {
	if delta == "" {
		return
	}

	p.mu.Lock()
	if isReasoning {
		p.reasoning.append(delta)
	} else {
		p.regular.append(delta)
	}
	p.cancelTimerLocked()

	now := nowFunc()
	if p.hasPublished && now.Sub(p.lastPublish) >= MinInterval {
		p.flushLocked()
		p.mu.Unlock()
		return
	}

	var delay time.Duration
	if p.hasPublished {
		delay = MinInterval - now.Sub(p.lastPublish)
		if delay < 0 {
			delay = 0
		}
		if delay > MaxLatency {
			delay = MaxLatency
		}
	} else {
		delay = MinInterval
	}

	p.pendingTimer = afterFunc(delay, p.scheduledFlush)
	p.pendingTimerOn = true
	p.mu.Unlock()
}

func (p *Publisher) scheduledFlush() {
	p.mu.Lock()
	p.pendingTimerOn = false
	p.flushLocked()
	p.mu.Unlock()
}

// Flush emits one event per non-empty buffer, reasoning first, per
// spec.md §4.10's flush operation.
func (p *Publisher) Flush() {
	p.mu.Lock()
	p.cancelTimerLocked()
	p.flushLocked()
	p.mu.Unlock()
}

// ForceFlush cancels any pending timer and flushes if either buffer is
// non-empty, per spec.md §4.10's forceFlush operation.
func (p *Publisher) ForceFlush() {
	p.mu.Lock()
	p.cancelTimerLocked()
	if !p.regular.empty() || !p.reasoning.empty() {
		p.flushLocked()
	}
	p.mu.Unlock()
}

// flushLocked performs the actual emission. Caller must hold p.mu.
func (p *Publisher) flushLocked() {
	if r := p.reasoning.drain(); r != "" {
		p.emitter.Emit(Event{Text: r, Reasoning: true})
	}
	if r := p.regular.drain(); r != "" {
		p.emitter.Emit(Event{Text: r})
	}
	p.lastPublish = nowFunc()
	p.hasPublished = true
}

func (p *Publisher) cancelTimerLocked() {
	if p.pendingTimerOn && p.pendingTimer != nil {
		p.pendingTimer.Stop()
	}
	p.pendingTimerOn = false
}
