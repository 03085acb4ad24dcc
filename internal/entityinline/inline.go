// Package entityinline resolves `nostr:` entity references embedded in
// message text by fetching the referenced event through the transport and
// splicing its content inline, grounded on nexus's
// internal/channels/nostr/adapter.go nip19-decode idiom (there used to turn
// npub/nsec bech32 strings into hex keys; here generalized to arbitrary
// bech32 entity references embedded in free text).
package entityinline

import (
	"context"
	"log/slog"
	"regexp"
)

// entityRe matches a bech32-encoded nostr entity reference, per spec.md
// §4.2: `nostr:(nevent1|naddr1|note1|npub1|nprofile1)[alnum]+`.
var entityRe = regexp.MustCompile(`nostr:(nevent1|naddr1|note1|npub1|nprofile1)[a-zA-Z0-9]+`)

// Fetcher resolves a bech32 entity reference (the full "nostr:..." token) to
// its referenced content. Implementations wrap the transport; fetch failures
// are reported via a non-nil error and never panic.
type Fetcher interface {
	FetchEntity(ctx context.Context, token string) (string, error)
}

// Inliner replaces nostr entity tokens in text with their fetched content.
type Inliner struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates an Inliner backed by fetcher. A nil logger falls back to
// slog.Default().
func New(fetcher Fetcher, logger *slog.Logger) *Inliner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inliner{fetcher: fetcher, logger: logger}
}

// Inline scans text for nostr entity tokens and replaces each with
// `<nostr-event entity="...">FETCHED_CONTENT</nostr-event>`. Each token is
// resolved independently; a fetch failure leaves that token unchanged and
// logs a warning rather than aborting the whole pass. Inline never panics:
// a failure anywhere in resolution degrades to returning text unmodified
// for that token.
func (inl *Inliner) Inline(ctx context.Context, text string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			inl.logger.Warn("entityinline: recovered from panic, returning original text", "panic", r)
			result = text
		}
	}()

	if inl.fetcher == nil {
		return text
	}

	tokens := entityRe.FindAllString(text, -1)
	if len(tokens) == 0 {
		return text
	}

	replacements := make(map[string]string, len(tokens))
	for _, token := range tokens {
		if _, done := replacements[token]; done {
			continue
		}
		content, err := inl.fetcher.FetchEntity(ctx, token)
		if err != nil {
			inl.logger.Warn("entityinline: fetch failed, leaving token unchanged", "token", token, "error", err)
			continue
		}
		replacements[token] = "<nostr-event entity=\"" + token + "\">" + content + "</nostr-event>"
	}

	return entityRe.ReplaceAllStringFunc(text, func(token string) string {
		if replacement, ok := replacements[token]; ok {
			return replacement
		}
		return token
	})
}

// HasEntityRefs reports whether text contains at least one nostr entity
// token, without resolving any of them.
func HasEntityRefs(text string) bool {
	return entityRe.MatchString(text)
}
