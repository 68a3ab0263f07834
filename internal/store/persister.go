package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/suykerbuyk/codepulse/internal/logger"
	"github.com/suykerbuyk/codepulse/internal/model"
)

// Outcome of a Persister save.
type Outcome int

const (
	// Saved means the full aggregate was written.
	Saved Outcome = iota
	// SavedCritical means only the critical fields were written.
	SavedCritical
	// Failed means nothing was written.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case SavedCritical:
		return "saved-critical"
	default:
		return "failed"
	}
}

// BreakerSettings tune the circuit breaker around full saves.
type BreakerSettings struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// DefaultBreakerSettings trips after three consecutive failures and
// tries again after thirty seconds.
var DefaultBreakerSettings = BreakerSettings{FailureThreshold: 3, Timeout: 30 * time.Second}

// Persister writes the aggregate with a reduced fallback payload. Full
// saves run behind a circuit breaker; while it is open the persister goes
// straight to the critical payload.
type Persister struct {
	store   Store
	opts    EncodeOptions
	breaker *gobreaker.CircuitBreaker[struct{}]
	log     *logger.Logger

	// digest of the blob last saved or loaded through this persister.
	digest uint64
	known  bool
}

// NewPersister wraps st.
func NewPersister(st Store, opts EncodeOptions, bs BreakerSettings, log *logger.Logger) *Persister {
	log = logger.OrNop(log)
	settings := gobreaker.Settings{
		Name:        "state-save",
		MaxRequests: 1,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}
	return &Persister{
		store:   st,
		opts:    opts,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		log:     log,
	}
}

// Store returns the wrapped store.
func (p *Persister) Store() Store { return p.store }

// Lock takes the store's cross-process lock. Stores that are not shared
// between processes return a no-op unlock.
func (p *Persister) Lock(ctx context.Context) (func(), error) {
	if l, ok := p.store.(Locker); ok {
		return l.Lock(ctx)
	}
	return func() {}, nil
}

// Load reads the stored blob. changed is false when the blob is the one
// this persister last saved or loaded, so callers can skip decoding it.
func (p *Persister) Load(ctx context.Context) (data []byte, changed bool, err error) {
	data, err = p.store.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	sum := xxhash.Sum64(data)
	changed = !p.known || sum != p.digest
	p.digest, p.known = sum, true
	return data, changed, nil
}

func (p *Persister) remember(data []byte) {
	p.digest = xxhash.Sum64(data)
	p.known = true
}

// Save writes s, falling back to the critical payload. It may prune old
// day records from s when the blob exceeds the size cap. The returned
// error is non-nil only for Failed.
func (p *Persister) Save(ctx context.Context, s *model.Stats, now time.Time) (Outcome, error) {
	_, err := p.breaker.Execute(func() (struct{}, error) {
		data, pruned, err := Encode(s, p.opts, now)
		if err != nil {
			return struct{}{}, err
		}
		if pruned > 0 {
			p.log.Info("pruned old history", "days", pruned, "bytes", len(data))
		}
		if p.opts.MaxBytes > 0 && len(data) > p.opts.MaxBytes {
			p.log.Warn("state exceeds size cap", "bytes", len(data), "cap", p.opts.MaxBytes)
		}
		if err := p.store.Save(ctx, data); err != nil {
			return struct{}{}, err
		}
		p.remember(data)
		return struct{}{}, nil
	})
	if err == nil {
		return Saved, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.log.Debug("full save skipped, breaker open")
	} else {
		p.log.Warn("full save failed", "error", err)
	}

	data, cerr := EncodeCritical(s)
	if cerr == nil {
		cerr = p.store.Save(ctx, data)
	}
	if cerr != nil {
		p.log.Error("critical save failed", "error", cerr)
		return Failed, fmt.Errorf("save state: %w", errors.Join(err, cerr))
	}
	p.remember(data)
	return SavedCritical, nil
}

// BreakerState reports the breaker state for health checks.
func (p *Persister) BreakerState() string {
	return p.breaker.State().String()
}
