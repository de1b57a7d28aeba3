// Package events provides an incremental poller over the contract event
// stream. The poller keeps a ledger cursor so each event is delivered at most
// once, survives empty polls without losing its place, and resumes from the
// same cursor after transient errors.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/scval"
)

// ContractEvent is one decoded contract event ready for display.
type ContractEvent struct {
	// Type is the event's leading topic symbol ("create", "donate",
	// "claim"), or "unknown" when the topic does not decode to a symbol.
	Type string
	// Data is the decoded event payload; shape depends on Type.
	Data any
	// Ledger the event was recorded in.
	Ledger uint32
	// Timestamp is when this client observed the event.
	Timestamp time.Time
}

// Source is the event-feed capability the poller consumes.
type Source interface {
	GetEvents(ctx context.Context, startLedger uint32, contractID string, limit int) ([]rpc.Event, error)
	LatestLedger(ctx context.Context) (uint32, error)
}

// Handler receives each non-empty batch of new events, oldest first. It runs
// on the poller's goroutine; slow handlers delay the next poll.
type Handler func(events []ContractEvent)

// Poller polls a Source for new contract events on a fixed interval.
type Poller struct {
	source     Source
	contractID string
	logger     *slog.Logger

	interval time.Duration
	lookback uint32
	limit    int
	clock    func() time.Time

	cursor uint32
}

// Option customizes a Poller.
type Option func(*Poller)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithLookback overrides how many ledgers behind the tip the first poll
// starts from.
func WithLookback(n uint32) Option {
	return func(p *Poller) { p.lookback = n }
}

// WithLimit overrides the per-poll batch size.
func WithLimit(n int) Option {
	return func(p *Poller) { p.limit = n }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.clock = now }
}

// New creates a poller for the given contract.
func New(source Source, contractID string, opts ...Option) *Poller {
	p := &Poller{
		source:     source,
		contractID: contractID,
		logger:     slog.Default().With("component", "events"),
		interval:   5 * time.Second,
		lookback:   1000,
		limit:      20,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the poll loop on its own goroutine and returns a stop
// function. Stopping is idempotent; after stop returns no further handler
// calls are in flight.
func (p *Poller) Start(ctx context.Context, handler Handler) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		p.run(ctx, handler)
	}()

	return func() {
		cancel()
		<-done
	}
}

func (p *Poller) run(ctx context.Context, handler Handler) {
	for {
		p.pollOnce(ctx, handler)

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.interval):
		}
	}
}

// pollOnce performs one fetch-decode-deliver cycle. The cursor only moves on
// a non-empty batch, to one past the newest delivered ledger; errors and
// empty batches leave it where it was.
func (p *Poller) pollOnce(ctx context.Context, handler Handler) {
	if p.cursor == 0 {
		latest, err := p.source.LatestLedger(ctx)
		if err != nil {
			p.logger.Warn("resolve latest ledger", "error", err)
			return
		}
		p.cursor = startCursor(latest, p.lookback)
	}

	raw, err := p.source.GetEvents(ctx, p.cursor, p.contractID, p.limit)
	if err != nil {
		p.logger.Warn("fetch events", "error", err, "cursor", p.cursor)
		return
	}
	if len(raw) == 0 {
		return
	}

	batch := make([]ContractEvent, 0, len(raw))
	for _, ev := range raw {
		batch = append(batch, p.decode(ev))
	}

	p.cursor = raw[len(raw)-1].Ledger + 1
	p.logger.Debug("events delivered", "count", len(batch), "next_cursor", p.cursor)
	handler(batch)
}

func startCursor(latest, lookback uint32) uint32 {
	if latest <= lookback {
		return 1
	}
	return latest - lookback
}

// decode turns a raw event into its display form. Decoding is best-effort:
// a topic or payload that fails to parse yields "unknown" or nil data rather
// than dropping the event.
func (p *Poller) decode(ev rpc.Event) ContractEvent {
	out := ContractEvent{
		Type:      "unknown",
		Ledger:    ev.Ledger,
		Timestamp: p.clock(),
	}

	if len(ev.Topics) > 0 {
		if v, err := scval.DecodeBase64(ev.Topics[0]); err == nil {
			if sym, ok := scval.ToNative(v).(string); ok {
				out.Type = sym
			}
		}
	}
	if ev.Value != "" {
		if v, err := scval.DecodeBase64(ev.Value); err == nil {
			out.Data = scval.ToNative(v)
		}
	}
	return out
}
