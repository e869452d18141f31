package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"escrowd/pkg/domain"
)

// Publisher writes records to the primary store and best-effort copies to any
// mirrors. It is synchronous by default; WithAsyncBuffer moves persistence to
// a background goroutine so the request path never waits on slow sinks.
type Publisher struct {
	store   Store
	mirrors []Appender
	logger  *slog.Logger

	inbox     chan Record
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// channel capacity. Emit drops records once the buffer is full rather than
// blocking a ledger operation.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Record, size)
	}
}

// WithMirror registers an additional sink that receives a best-effort copy of
// every record. Mirror failures are logged, never propagated.
func WithMirror(mirror Appender) Option {
	return func(p *Publisher) {
		if mirror != nil {
			p.mirrors = append(p.mirrors, mirror)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit assigns identity and timestamp if missing, then persists the record.
func (p *Publisher) Emit(ctx context.Context, record Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.RecordedAt.IsZero() {
		record.RecordedAt = time.Now()
	}

	if p.inbox == nil {
		return p.persist(ctx, record)
	}

	select {
	case p.inbox <- record:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("record buffer full")
	}
}

func (p *Publisher) ListByAccount(ctx context.Context, account domain.AccountID) ([]Record, error) {
	return p.store.ListByAccount(ctx, account)
}

func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close drains the async buffer and waits for in-flight writes. Safe to call
// multiple times; a no-op in synchronous mode.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.inbox)
		p.wg.Wait()
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for record := range p.inbox {
		if err := p.persist(context.Background(), record); err != nil {
			p.logger.Error("failed to persist record",
				"record_id", record.ID.String(),
				"record_type", string(record.Type),
				"error", err,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, record Record) error {
	if err := p.store.Append(ctx, record); err != nil {
		return err
	}
	for _, mirror := range p.mirrors {
		if err := mirror.Append(ctx, record); err != nil {
			p.logger.Warn("record mirror append failed",
				"record_id", record.ID.String(),
				"error", err,
			)
		}
	}
	return nil
}
