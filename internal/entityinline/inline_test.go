package entityinline

import (
	"context"
	"errors"
	"testing"
)

type fakeFetcher struct {
	responses map[string]string
	errors    map[string]error
	calls     []string
}

func (f *fakeFetcher) FetchEntity(ctx context.Context, token string) (string, error) {
	f.calls = append(f.calls, token)
	if err, ok := f.errors[token]; ok {
		return "", err
	}
	return f.responses[token], nil
}

func TestInlineReplacesResolvedToken(t *testing.T) {
	token := "nostr:nevent1qqstestabc123"
	fetcher := &fakeFetcher{responses: map[string]string{token: "hello world"}}
	inl := New(fetcher, nil)

	got := inl.Inline(context.Background(), "see "+token+" for details")
	want := `see <nostr-event entity="` + token + `">hello world</nostr-event> for details`
	if got != want {
		t.Fatalf("Inline() = %q, want %q", got, want)
	}
}

func TestInlineLeavesFailedTokenUnchanged(t *testing.T) {
	token := "nostr:npub1qqfailme456"
	fetcher := &fakeFetcher{errors: map[string]error{token: errors.New("not found")}}
	inl := New(fetcher, nil)

	input := "ref " + token + " end"
	got := inl.Inline(context.Background(), input)
	if got != input {
		t.Fatalf("Inline() = %q, want unchanged %q", got, input)
	}
}

func TestInlineIndependentFailuresDoNotCancelSiblings(t *testing.T) {
	good := "nostr:note1goodtoken1"
	bad := "nostr:note1badtoken22"
	fetcher := &fakeFetcher{
		responses: map[string]string{good: "resolved"},
		errors:    map[string]error{bad: errors.New("boom")},
	}
	inl := New(fetcher, nil)

	input := good + " and " + bad
	got := inl.Inline(context.Background(), input)

	want := `<nostr-event entity="` + good + `">resolved</nostr-event> and ` + bad
	if got != want {
		t.Fatalf("Inline() = %q, want %q", got, want)
	}
}

func TestInlineNoTokensReturnsUnchanged(t *testing.T) {
	fetcher := &fakeFetcher{}
	inl := New(fetcher, nil)
	input := "nothing special here"
	if got := inl.Inline(context.Background(), input); got != input {
		t.Fatalf("Inline() = %q, want unchanged", got)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("fetcher should not be called when no tokens present")
	}
}

func TestInlineNilFetcherReturnsUnchanged(t *testing.T) {
	inl := New(nil, nil)
	input := "nostr:nevent1qqxyz"
	if got := inl.Inline(context.Background(), input); got != input {
		t.Fatalf("Inline() with nil fetcher = %q, want unchanged", got)
	}
}

func TestInlineDeduplicatesRepeatedToken(t *testing.T) {
	token := "nostr:naddr1qqrepeated"
	fetcher := &fakeFetcher{responses: map[string]string{token: "once"}}
	inl := New(fetcher, nil)

	input := token + " " + token
	inl.Inline(context.Background(), input)
	if len(fetcher.calls) != 1 {
		t.Fatalf("expected a single fetch for a repeated token, got %d calls", len(fetcher.calls))
	}
}

func TestHasEntityRefs(t *testing.T) {
	if !HasEntityRefs("see nostr:nprofile1abc") {
		t.Fatalf("expected true for text containing an entity token")
	}
	if HasEntityRefs("plain text") {
		t.Fatalf("expected false for plain text")
	}
}
