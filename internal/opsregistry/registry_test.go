package opsregistry

import (
	"context"
	"testing"
	"time"
)

func TestStartSecondTurnCancelsFirst(t *testing.T) {
	r := New()

	first := r.Start(context.Background(), "agentA", "c1")

	select {
	case <-first.Ctx.Done():
		t.Fatalf("first operation cancelled before second turn started")
	default:
	}

	second := r.Start(context.Background(), "agentA", "c1")

	select {
	case <-first.Ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("first operation's context was not cancelled when superseded")
	}

	select {
	case <-second.Ctx.Done():
		t.Fatalf("second operation's context should not be cancelled")
	default:
	}
}

func TestCompleteRemovesCurrentEntry(t *testing.T) {
	r := New()
	op := r.Start(context.Background(), "agentA", "c1")

	if !r.Active("agentA", "c1") {
		t.Fatalf("expected operation to be active")
	}

	op.Complete()

	if r.Active("agentA", "c1") {
		t.Fatalf("expected no active operation after Complete")
	}

	select {
	case <-op.Ctx.Done():
	default:
		t.Fatalf("Complete() should cancel the operation's own context")
	}
}

func TestCompleteIsNoopWhenSuperseded(t *testing.T) {
	r := New()
	first := r.Start(context.Background(), "agentA", "c1")
	second := r.Start(context.Background(), "agentA", "c1")

	// first was already cancelled by second's Start; calling Complete on it
	// must not remove second's entry.
	first.Complete()

	if !r.Active("agentA", "c1") {
		t.Fatalf("second operation's entry was incorrectly removed by a stale Complete()")
	}

	second.Complete()
	if r.Active("agentA", "c1") {
		t.Fatalf("expected no active operation after second.Complete()")
	}
}

func TestIndependentConversationsDoNotInterfere(t *testing.T) {
	r := New()
	opA := r.Start(context.Background(), "agentA", "c1")
	opB := r.Start(context.Background(), "agentA", "c2")

	select {
	case <-opA.Ctx.Done():
		t.Fatalf("distinct conversation ids must not cancel each other")
	default:
	}
	_ = opB
}

func TestActiveFalseForUnknownKey(t *testing.T) {
	r := New()
	if r.Active("agentA", "c1") {
		t.Fatalf("expected false for a key with no registered operation")
	}
}
