// Package nostr is the concrete Transport backed by real Nostr relays,
// grounded on nexus's internal/channels/nostr/adapter.go: relay pool
// connection, nip19 bech32 decode/encode, and signed-event construction, all
// adapted from nexus's DM-channel vocabulary to this engine's threaded
// event log.
package nostr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"

	"github.com/signalmesh/swarmcore/internal/swarmerr"
	"github.com/signalmesh/swarmcore/internal/transport"
	"github.com/signalmesh/swarmcore/pkg/event"
)

// DefaultRelays mirrors the teacher's commonly used public relay set.
var DefaultRelays = []string{
	"wss://relay.damus.io",
	"wss://nos.lol",
	"wss://relay.nostr.band",
}

// Config holds the adapter's connection settings.
type Config struct {
	PrivateKey string
	Relays     []string
	Logger     *slog.Logger
}

func (c *Config) validate() error {
	if c.PrivateKey == "" {
		return swarmerr.Transport("nostr: private_key is required", nil)
	}
	if len(c.Relays) == 0 {
		c.Relays = DefaultRelays
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Adapter implements transport.Transport and entityinline.Fetcher against a
// pool of live Nostr relays.
type Adapter struct {
	cfg        Config
	privateKey string
	publicKey  string

	mu     sync.Mutex
	relays []*nostr.Relay

	logger *slog.Logger
}

// NewAdapter connects to every relay in cfg.Relays and returns an Adapter
// once at least one connection succeeds.
func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	privateKey, err := parseKey(cfg.PrivateKey, "nsec")
	if err != nil {
		return nil, swarmerr.Transport("nostr: invalid private key", err)
	}

	publicKey, err := nostr.GetPublicKey(privateKey)
	if err != nil {
		return nil, swarmerr.Transport("nostr: failed to derive public key", err)
	}

	a := &Adapter{
		cfg:        cfg,
		privateKey: privateKey,
		publicKey:  publicKey,
		logger:     cfg.Logger.With("transport", "nostr"),
	}

	for _, url := range cfg.Relays {
		relay, err := nostr.RelayConnect(ctx, url)
		if err != nil {
			a.logger.Warn("nostr: relay connect failed", "relay", url, "error", err)
			continue
		}
		a.relays = append(a.relays, relay)
	}

	if len(a.relays) == 0 {
		return nil, swarmerr.Transport("nostr: failed to connect to any relay", nil)
	}

	return a, nil
}

// Fetch retrieves a single event by id from whichever relay answers first.
func (a *Adapter) Fetch(ctx context.Context, eventID string) (*event.Event, error) {
	filter := nostr.Filter{IDs: []string{eventID}, Limit: 1}

	a.mu.Lock()
	relays := append([]*nostr.Relay(nil), a.relays...)
	a.mu.Unlock()

	for _, relay := range relays {
		events, err := relay.QuerySync(ctx, filter)
		if err != nil {
			a.logger.Warn("nostr: query failed", "relay", relay.URL, "error", err)
			continue
		}
		if len(events) > 0 {
			return fromNostrEvent(events[0]), nil
		}
	}

	return nil, swarmerr.Transport(fmt.Sprintf("nostr: event %s not found on any relay", eventID), nil)
}

// Publish signs e with the adapter's private key and broadcasts it to every
// connected relay, succeeding if at least one accepts it.
func (a *Adapter) Publish(ctx context.Context, e *event.Event) error {
	ne := toNostrEvent(e)
	if err := ne.Sign(a.privateKey); err != nil {
		return swarmerr.Transport("nostr: failed to sign event", err)
	}
	e.ID = ne.ID

	a.mu.Lock()
	relays := append([]*nostr.Relay(nil), a.relays...)
	a.mu.Unlock()

	var lastErr error
	for _, relay := range relays {
		if err := relay.Publish(ctx, ne); err != nil {
			lastErr = err
			a.logger.Warn("nostr: publish failed", "relay", relay.URL, "error", err)
			continue
		}
		return nil
	}

	return swarmerr.Transport("nostr: failed to publish to any relay", lastErr)
}

// Subscribe streams events matching filter from every connected relay until
// ctx is cancelled.
func (a *Adapter) Subscribe(ctx context.Context, filter transport.Filter) (<-chan *event.Event, error) {
	nf := toNostrFilter(filter)
	out := make(chan *event.Event, 64)

	a.mu.Lock()
	relays := append([]*nostr.Relay(nil), a.relays...)
	a.mu.Unlock()

	var wg sync.WaitGroup
	for _, relay := range relays {
		sub, err := relay.Subscribe(ctx, nostr.Filters{nf})
		if err != nil {
			a.logger.Warn("nostr: subscribe failed", "relay", relay.URL, "error", err)
			continue
		}
		wg.Add(1)
		go func(sub *nostr.Subscription) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					sub.Unsub()
					return
				case ev, ok := <-sub.Events:
					if !ok {
						return
					}
					select {
					case out <- fromNostrEvent(ev):
					case <-ctx.Done():
						return
					}
				}
			}
		}(sub)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// FetchEntity implements entityinline.Fetcher: token is a full "nostr:..."
// bech32 reference. note and nevent ids are resolved through Fetch and yield
// the event's content; npub and nprofile yield the decoded pubkey, and naddr
// its identifier, without a fetch.
func (a *Adapter) FetchEntity(ctx context.Context, token string) (string, error) {
	raw := strings.TrimPrefix(token, "nostr:")
	prefix, data, err := nip19.Decode(raw)
	if err != nil {
		return "", swarmerr.Transport("nostr: invalid entity reference", err)
	}

	switch prefix {
	case "note":
		id, _ := data.(string)
		e, err := a.Fetch(ctx, id)
		if err != nil {
			return "", err
		}
		return e.Content, nil
	case "nevent":
		pointer, ok := data.(nostr.EventPointer)
		if !ok {
			return "", swarmerr.Transport("nostr: malformed nevent pointer", nil)
		}
		e, err := a.Fetch(ctx, pointer.ID)
		if err != nil {
			return "", err
		}
		return e.Content, nil
	case "npub":
		pubkey, _ := data.(string)
		return pubkey, nil
	case "nprofile":
		pointer, ok := data.(nostr.ProfilePointer)
		if !ok {
			return "", swarmerr.Transport("nostr: malformed nprofile pointer", nil)
		}
		return pointer.PublicKey, nil
	case "naddr":
		pointer, ok := data.(nostr.EntityPointer)
		if !ok {
			return "", swarmerr.Transport("nostr: malformed naddr pointer", nil)
		}
		return pointer.Identifier, nil
	default:
		return "", swarmerr.Transport(fmt.Sprintf("nostr: unsupported entity prefix %q", prefix), nil)
	}
}

// Close disconnects every relay.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, relay := range a.relays {
		_ = relay.Close()
	}
}

func toNostrEvent(e *event.Event) *nostr.Event {
	tags := make(nostr.Tags, 0, len(e.Tags))
	for _, t := range e.Tags {
		tags = append(tags, nostr.Tag(t))
	}
	return &nostr.Event{
		PubKey:    e.Author,
		CreatedAt: nostr.Timestamp(e.CreatedAt.Unix()),
		Kind:      int(e.Kind),
		Tags:      tags,
		Content:   e.Content,
	}
}

func fromNostrEvent(ne *nostr.Event) *event.Event {
	tags := make(event.Tags, 0, len(ne.Tags))
	for _, t := range ne.Tags {
		tags = append(tags, event.Tag(t))
	}
	return &event.Event{
		ID:        ne.ID,
		Author:    ne.PubKey,
		CreatedAt: ne.CreatedAt.Time(),
		Kind:      event.Kind(ne.Kind),
		Content:   ne.Content,
		Tags:      tags,
	}
}

func toNostrFilter(f transport.Filter) nostr.Filter {
	nf := nostr.Filter{Authors: f.Authors}
	for _, k := range f.Kinds {
		nf.Kinds = append(nf.Kinds, int(k))
	}
	if f.Since > 0 {
		since := nostr.Timestamp(f.Since)
		nf.Since = &since
	}
	return nf
}

// parseKey parses a hex or bech32-encoded key, validating the decoded
// bech32 prefix matches want (e.g. "nsec" for a private key).
func parseKey(key, want string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if strings.HasPrefix(trimmed, want+"1") {
		prefix, data, err := nip19.Decode(trimmed)
		if err != nil {
			return "", err
		}
		if prefix != want {
			return "", fmt.Errorf("expected %s key, got %s", want, prefix)
		}
		hexKey, ok := data.(string)
		if !ok {
			return "", fmt.Errorf("unexpected %s payload type %T", want, data)
		}
		return hexKey, nil
	}
	if len(trimmed) != 64 {
		return "", fmt.Errorf("key must be 64 hex characters or bech32 %s format", want)
	}
	return trimmed, nil
}
