// Package publisher fans domain audit events into a store, either inline or
// through a buffered background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "ngoconnect/pkg/domain"
	audit "ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/platform/middleware/metadata"
	"ngoconnect/pkg/requestcontext"
)

// Publisher implements audit.Emitter. In sync mode events are appended before
// Emit returns. With an async buffer, Emit enqueues and a background goroutine
// drains; Close flushes whatever is still queued.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking up to size queued events.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger routes append failures somewhere visible.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records the event. Category and timestamp are filled in when the
// caller left them zero.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.IP == "" {
		event.IP = metadata.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = metadata.UserAgent(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// List exposes the underlying store's per-user view, mostly for tests and
// admin reads.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops the background goroutine after flushing queued events. Safe to
// call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Error("append audit event failed", "action", event.Action, "error", err)
		}
		cancel()
	}
}
