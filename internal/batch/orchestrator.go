package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hangil-labs/geoconv/internal/addr"
	"github.com/hangil-labs/geoconv/internal/quota"
	"github.com/hangil-labs/geoconv/pkg/vworld"
)

// Orchestrator resolves a batch of records to completion. It is safe for
// a single Run at a time.
type Orchestrator struct {
	classifier  *addr.Classifier
	client      vworld.Client
	quota       *quota.Counter
	fallback    []vworld.AddressType
	concurrency int
	limit       int
	onOutcome   func(Outcome)
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithFallbackOrder sets the lookup order for UNKNOWN-classified
// addresses; the same order decides the one-shot type fallback after a
// NOT_FOUND. Default: ROAD then PARCEL.
func WithFallbackOrder(order []vworld.AddressType) Option {
	return func(o *Orchestrator) {
		if len(order) > 0 {
			o.fallback = order
		}
	}
}

// WithConcurrency sets how many rows may be in flight at once. Dispatch
// order still follows row order; output order is always row order.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRowLimit caps how many rows are resolved; rows past the cap are
// SKIPPED without a network call. 0 means no cap.
func WithRowLimit(n int) Option {
	return func(o *Orchestrator) { o.limit = n }
}

// WithProgress registers a callback invoked once per completed outcome.
// Under concurrency the callbacks arrive out of row order.
func WithProgress(fn func(Outcome)) Option {
	return func(o *Orchestrator) { o.onOutcome = fn }
}

// New builds an Orchestrator around a classifier, a geocode client, and
// the shared quota counter.
func New(classifier *addr.Classifier, client vworld.Client, q *quota.Counter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		classifier:  classifier,
		client:      client,
		quota:       q,
		fallback:    []vworld.AddressType{vworld.TypeRoad, vworld.TypeParcel},
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every record and returns exactly one outcome per record,
// in row order. A provider key/quota rejection aborts remaining dispatch;
// the outcomes are still complete (pending rows marked SKIPPED_QUOTA) and
// the fatal cause is returned alongside them.
func (o *Orchestrator) Run(ctx context.Context, records []Record) ([]Outcome, error) {
	log := zap.L().With(zap.Int("records", len(records)))
	log.Info("starting batch resolution",
		zap.Int("concurrency", o.concurrency),
		zap.Int64("quota_remaining", o.quota.Remaining()),
	)

	outcomes := make([]Outcome, len(records))

	var aborted atomic.Bool
	var fatalOnce sync.Once
	var fatalErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range records {
		rec := records[i]
		g.Go(func() error {
			var out Outcome
			switch {
			case o.limit > 0 && rec.Index >= o.limit:
				rec.Status = StatusSkipped
				out = Outcome{Record: rec, Reason: "beyond row limit"}
			case aborted.Load():
				rec.Status = StatusSkippedQuota
				out = Outcome{Record: rec, Reason: "session aborted by provider rejection"}
			case o.quota.Exhausted():
				rec.Status = StatusSkippedQuota
				out = Outcome{Record: rec, Reason: "daily quota exhausted"}
			default:
				var fatal error
				out, fatal = o.resolve(gctx, rec)
				if fatal != nil {
					aborted.Store(true)
					fatalOnce.Do(func() { fatalErr = fatal })
				}
			}

			outcomes[rec.Index] = out
			if o.onOutcome != nil {
				o.onOutcome(out)
			}
			return nil
		})
	}
	_ = g.Wait()

	s := Summarize(outcomes)
	log.Info("batch resolution complete",
		zap.Int("resolved", s.Resolved),
		zap.Int("failed", s.Failed),
		zap.Int("skipped", s.Skipped),
		zap.Int("skipped_quota", s.SkippedQuota),
		zap.Int64("quota_used", o.quota.Used()),
	)

	if fatalErr != nil {
		return outcomes, eris.Wrap(fatalErr, "batch: provider rejected the session")
	}
	return outcomes, nil
}

// resolve takes one record to a terminal state. The second return value
// is non-nil only for the fatal key/quota rejection.
func (o *Orchestrator) resolve(ctx context.Context, rec Record) (Outcome, error) {
	cls := o.classifier.Classify(ctx, rec.Address)
	rec.Type = cls.Type

	address := addr.Normalize(rec.Address)
	if address == "" {
		rec.Status = StatusSkipped
		return Outcome{Record: rec, Classification: cls, Reason: "empty address"}, nil
	}

	var lastErr error
	for _, typ := range o.attemptTypes(cls.Type) {
		coord, err := o.client.Geocode(ctx, address, typ)
		if err == nil {
			rec.Type = addr.Type(typ)
			rec.Status = StatusResolved
			return Outcome{Record: rec, Coordinate: &coord, Classification: cls}, nil
		}

		if errors.Is(err, vworld.ErrQuotaExhausted) {
			rec.Status = StatusSkippedQuota
			return Outcome{Record: rec, Classification: cls, Reason: "daily quota exhausted"}, nil
		}
		if vworld.IsFatal(err) {
			rec.Status = StatusFailed
			out := Outcome{
				Record:         rec,
				Classification: cls,
				Reason:         err.Error(),
				ProviderStatus: vworld.ProviderStatus(err),
			}
			return out, err
		}

		lastErr = err
		if !vworld.IsNotFound(err) {
			// Only a clean no-match justifies trying the other type.
			break
		}
	}

	rec.Status = StatusFailed
	out := Outcome{
		Record:         rec,
		Classification: cls,
		ProviderStatus: vworld.ProviderStatus(lastErr),
	}
	if lastErr != nil {
		out.Reason = lastErr.Error()
	}
	return out, nil
}

// attemptTypes returns the lookup order for a classified type: the
// classified type first with the opposite as the NOT_FOUND fallback, or
// the configured order for UNKNOWN.
func (o *Orchestrator) attemptTypes(t addr.Type) []vworld.AddressType {
	switch t {
	case addr.TypeRoad:
		return []vworld.AddressType{vworld.TypeRoad, vworld.TypeParcel}
	case addr.TypeParcel:
		return []vworld.AddressType{vworld.TypeParcel, vworld.TypeRoad}
	default:
		return o.fallback
	}
}
