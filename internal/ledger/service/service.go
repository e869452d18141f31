// Package service orchestrates ledger operations: it runs the aggregate's
// rules inside the store's critical section, moves custody through the vault
// as the terminal step, and emits records, events, and metrics only after the
// state has committed.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"escrowd/internal/ledger/metrics"
	"escrowd/internal/ledger/models"
	"escrowd/internal/ledger/store"
	"escrowd/internal/notify"
	"escrowd/internal/recorder"
	"escrowd/internal/vault"
	"escrowd/pkg/domain"
	dErrors "escrowd/pkg/domain-errors"
	"escrowd/pkg/requestcontext"
)

// Recorder is the transaction book the service writes to. *recorder.Publisher
// satisfies it.
type Recorder interface {
	Emit(ctx context.Context, record recorder.Record) error
	ListByAccount(ctx context.Context, account domain.AccountID) ([]recorder.Record, error)
	ListRecent(ctx context.Context, limit int) ([]recorder.Record, error)
}

type Service struct {
	store    store.Store
	vault    vault.Vault
	logger   *slog.Logger
	recorder Recorder
	notifier notify.Sink
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithRecorder(rec Recorder) Option {
	return func(s *Service) {
		s.recorder = rec
	}
}

func WithNotifier(sink notify.Sink) Option {
	return func(s *Service) {
		s.notifier = sink
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(ledgerStore store.Store, fundVault vault.Vault, opts ...Option) (*Service, error) {
	if ledgerStore == nil {
		return nil, errors.New("ledger store is required")
	}
	if fundVault == nil {
		return nil, errors.New("vault is required")
	}

	s := &Service{
		store: ledgerStore,
		vault: fundVault,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("escrowd/ledger").Start(ctx, name)
}

// caller extracts the authenticated account from the request context.
func caller(ctx context.Context) (domain.AccountID, error) {
	account := requestcontext.AccountID(ctx)
	if account.IsZero() {
		return domain.NilAccount, dErrors.New(dErrors.CodeUnauthorized, "caller identity missing")
	}
	return account, nil
}

// record appends to the transaction book. The operation has already
// committed, so failures are logged rather than propagated.
func (s *Service) record(ctx context.Context, rec recorder.Record) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Emit(ctx, rec); err != nil {
		s.logger.WarnContext(ctx, "failed to append transaction record",
			"request_id", requestcontext.RequestID(ctx),
			"record_type", string(rec.Type),
			"error", err,
		)
	}
}

func (s *Service) notify(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"request_id", requestcontext.RequestID(ctx),
			"event_type", string(event.Type),
			"error", err,
		)
	}
}

func (s *Service) updateStateGauges(ledger *models.Ledger) {
	s.metrics.SetLedgerState(ledger.TotalFunds, ledger.Whitelist.Len(), len(ledger.Blacklist))
}

// reject records a failed operation and returns the error unchanged.
func (s *Service) reject(ctx context.Context, span trace.Span, operation string, err error) error {
	span.RecordError(err)
	s.metrics.IncrementFailure(operation, string(dErrors.CodeOf(err)))
	s.logger.WarnContext(ctx, operation+" rejected",
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	return err
}

// wrapTransfer maps vault failures onto domain error codes. The aggregate's
// own held-balance check fires first, so insufficiency here means the books
// and custody have diverged mid-operation.
func wrapTransfer(err error) error {
	if errors.Is(err, vault.ErrInsufficientFunds) {
		return dErrors.Wrap(err, dErrors.CodeInsufficientFunds, "held balance below requested transfer")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "fund transfer failed")
}
