package delegation

import (
	"sync"
	"testing"
	"time"

	"github.com/signalmesh/swarmcore/pkg/event"
)

func TestRegisterRejectsEmptyTargets(t *testing.T) {
	r := New()
	_, err := r.Register("c1", "agentA", nil, "do it", time.Minute, nil)
	if err == nil {
		t.Fatalf("expected error for empty targets")
	}
}

func TestRecordResponseCompletesWhenAllTargetsRespond(t *testing.T) {
	r := New()
	var mu sync.Mutex
	var fired []Record
	done := make(chan struct{}, 1)

	hook := func(rec Record) {
		mu.Lock()
		fired = append(fired, rec)
		mu.Unlock()
		done <- struct{}{}
	}

	id, err := r.Register("c1", "agentA", []string{"agentB", "agentC"}, "investigate", time.Minute, hook)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	status := r.RecordResponse("c1", "agentA", "agentB", event.Event{ID: "eB"})
	if status != StatusPending {
		t.Fatalf("status after first response = %v, want pending", status)
	}

	status = r.RecordResponse("c1", "agentA", "agentC", event.Event{ID: "eC"})
	if status != StatusComplete {
		t.Fatalf("status after second response = %v, want complete", status)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("resume hook never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 {
		t.Fatalf("resume hook fired %d times, want exactly 1", len(fired))
	}
	if fired[0].Status != StatusComplete {
		t.Fatalf("fired record status = %v", fired[0].Status)
	}
	if fired[0].DelegationID != id {
		t.Fatalf("fired record id mismatch")
	}
}

func TestRecordResponseIgnoresNonTarget(t *testing.T) {
	r := New()
	_, err := r.Register("c1", "agentA", []string{"agentB"}, "req", time.Minute, nil)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	status := r.RecordResponse("c1", "agentA", "agentZ", event.Event{ID: "ez"})
	if status != "" {
		t.Fatalf("status for unknown respondent = %v, want empty (not found)", status)
	}
}

func TestRecordResponseExtraResponseFromSameTargetIgnored(t *testing.T) {
	r := New()
	_, err := r.Register("c1", "agentA", []string{"agentB", "agentC"}, "req", time.Minute, nil)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	first := event.Event{ID: "first"}
	second := event.Event{ID: "second"}

	r.RecordResponse("c1", "agentA", "agentB", first)
	status := r.RecordResponse("c1", "agentA", "agentB", second)
	if status != StatusPending {
		t.Fatalf("status = %v, want still pending (agentC hasn't responded)", status)
	}
}

func TestTimeoutFiresResumeHookWithPartialResponses(t *testing.T) {
	r := New()
	done := make(chan Record, 1)
	hook := func(rec Record) { done <- rec }

	_, err := r.Register("c1", "agentA", []string{"agentB", "agentC"}, "req", 20*time.Millisecond, hook)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	r.RecordResponse("c1", "agentA", "agentB", event.Event{ID: "eB"})

	select {
	case rec := <-done:
		if rec.Status != StatusTimedOut {
			t.Fatalf("Status = %v, want timed-out", rec.Status)
		}
		if len(rec.Responses) != 1 {
			t.Fatalf("Responses = %+v, want partial set of 1", rec.Responses)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout resume hook never fired")
	}
}

func TestCancelNeverFiresResumeHook(t *testing.T) {
	r := New()
	fired := false
	hook := func(rec Record) { fired = true }

	id, err := r.Register("c1", "agentA", []string{"agentB"}, "req", time.Hour, hook)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Cancel(id); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	if fired {
		t.Fatalf("resume hook fired after cancellation")
	}

	rec, ok := r.Get(id)
	if !ok || rec.Status != StatusCancelled {
		t.Fatalf("Get() = %+v, %v", rec, ok)
	}
}

func TestHasPendingReflectsStatus(t *testing.T) {
	r := New()
	_, err := r.Register("c1", "agentA", []string{"agentB"}, "req", time.Minute, nil)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if !r.HasPending("c1", "agentA", "agentB") {
		t.Fatalf("expected HasPending true before response")
	}

	r.RecordResponse("c1", "agentA", "agentB", event.Event{ID: "e1"})

	if r.HasPending("c1", "agentA", "agentB") {
		t.Fatalf("expected HasPending false after completion")
	}
}

func TestHasPendingFalseForUnknownPair(t *testing.T) {
	r := New()
	if r.HasPending("c1", "agentA", "agentB") {
		t.Fatalf("expected false for unregistered delegation")
	}
}
