// Package provider keeps per-provider OIDC credentials fresh. Each
// provider slot is owned by a single background goroutine that holds the
// current credential snapshot, answers synchronous reads, and reschedules
// its own refresh from the HTTP caching headers of the last JWKS fetch.
package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/authware/go-oidc-rp/keyset"
	"github.com/authware/go-oidc-rp/oidc"
)

const (
	// defaultRefreshInterval is used when the JWKS response carries no
	// usable caching headers.
	defaultRefreshInterval = time.Hour

	// defaultRetryBackoff is the delay before retrying after a failed
	// refresh. The last good snapshot keeps being served meanwhile.
	defaultRetryBackoff = time.Minute
)

// ErrStopped is returned by reads against a provider that has been
// stopped.
var ErrStopped = errors.New("provider has been stopped")

// Logger receives diagnostic output from the provider. The adapters in
// the root package satisfy it.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Metrics receives refresh counters from the provider. The
// implementations in the root package satisfy it.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
	SetGauge(name string, value float64, tags map[string]string)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, map[string]string)                {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (noopMetrics) SetGauge(string, float64, map[string]string)         {}

// Provider is the long-lived actor owning one provider slot. All reads
// and the background refresh are serialized through its mailbox, so a
// read issued while a refresh is mid-flight blocks until the refresh
// finishes and then observes the snapshot as of a single instant.
type Provider struct {
	cfg     oidc.ProviderConfig
	client  Fetcher
	logger  Logger
	metrics Metrics

	refreshInterval time.Duration
	retryBackoff    time.Duration
	refreshTimeout  time.Duration

	ops      chan func(*Snapshot)
	stop     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}
}

// Option configures a Provider before it starts.
type Option func(*Provider) error

// WithFetcher replaces the outbound call implementation.
func WithFetcher(f Fetcher) Option {
	return func(p *Provider) error {
		if f == nil {
			return errors.New("fetcher cannot be nil")
		}
		p.client = f
		return nil
	}
}

// WithLogger sets the logger used for refresh diagnostics.
func WithLogger(l Logger) Option {
	return func(p *Provider) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		p.logger = l
		return nil
	}
}

// WithMetrics sets the metrics sink for refresh counters.
func WithMetrics(m Metrics) Option {
	return func(p *Provider) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		p.metrics = m
		return nil
	}
}

// WithRefreshInterval overrides the fallback delay used when the JWKS
// response carries no usable caching headers.
func WithRefreshInterval(d time.Duration) Option {
	return func(p *Provider) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		p.refreshInterval = d
		return nil
	}
}

// WithRetryBackoff overrides the delay before retrying a failed refresh.
func WithRetryBackoff(d time.Duration) Option {
	return func(p *Provider) error {
		if d <= 0 {
			return errors.New("retry backoff must be positive")
		}
		p.retryBackoff = d
		return nil
	}
}

// WithRefreshTimeout bounds each background refresh attempt.
func WithRefreshTimeout(d time.Duration) Option {
	return func(p *Provider) error {
		if d <= 0 {
			return errors.New("refresh timeout must be positive")
		}
		p.refreshTimeout = d
		return nil
	}
}

// Start builds the provider and performs one synchronous refresh before
// the background loop begins serving reads: a slot without discoverable
// metadata is unusable and must not answer with empty credentials. The
// passed context bounds only that initial refresh.
func Start(ctx context.Context, cfg oidc.ProviderConfig, opts ...Option) (*Provider, error) {
	p := &Provider{
		cfg:             cfg,
		client:          oidc.NewClient(),
		logger:          noopLogger{},
		metrics:         noopMetrics{},
		refreshInterval: defaultRefreshInterval,
		retryBackoff:    defaultRetryBackoff,
		refreshTimeout:  30 * time.Second,
		ops:             make(chan func(*Snapshot)),
		stop:            make(chan struct{}),
		stopped:         make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	snap, err := refreshSnapshot(ctx, p.client, p.cfg)
	if err != nil {
		return nil, err
	}
	p.observeRefresh(snap, nil)

	go p.run(snap)

	return p, nil
}

// Stop shuts the background loop down. Pending reads fail with
// ErrStopped. Stop is idempotent.
func (p *Provider) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.stopped
}

// Config returns the provider's static configuration.
func (p *Provider) Config() oidc.ProviderConfig { return p.cfg }

// Snapshot returns the current credential snapshot. It blocks until the
// actor answers, which means a refresh already in flight completes first.
func (p *Provider) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case p.ops <- func(s *Snapshot) { reply <- *s }:
		return <-reply, nil
	case <-p.stopped:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Document returns the current normalized discovery document.
func (p *Provider) Document(ctx context.Context) (oidc.Document, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return oidc.Document{}, err
	}
	return snap.Document, nil
}

// KeySet returns the current signing key set.
func (p *Provider) KeySet(ctx context.Context) (keyset.KeySet, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return keyset.KeySet{}, err
	}
	return snap.Keys, nil
}

// run is the actor loop. The snapshot is confined to this goroutine;
// reads are closures executed here, so replacement is atomic from the
// callers' point of view. The timer is rearmed exactly once per refresh
// attempt, success or failure.
func (p *Provider) run(snap Snapshot) {
	defer close(p.stopped)

	timer := time.NewTimer(p.delayFor(snap))
	defer timer.Stop()

	for {
		select {
		case op := <-p.ops:
			op(&snap)

		case <-timer.C:
			next, err := p.doRefresh()
			p.observeRefresh(next, err)
			if err != nil {
				// Keep serving the last good snapshot and retry soon.
				timer.Reset(p.retryBackoff)
				continue
			}
			snap = next
			timer.Reset(p.delayFor(snap))

		case <-p.stop:
			return
		}
	}
}

func (p *Provider) doRefresh() (Snapshot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.refreshTimeout)
	defer cancel()
	return refreshSnapshot(ctx, p.client, p.cfg)
}

// delayFor maps a snapshot's remaining lifetime to the next refresh
// delay: unknown lifetime falls back to the configured interval, an
// already-stale snapshot refreshes immediately.
func (p *Provider) delayFor(snap Snapshot) time.Duration {
	if !snap.LifetimeKnown {
		return p.refreshInterval
	}
	if snap.RemainingLifetime <= 0 {
		return 0
	}
	return time.Duration(snap.RemainingLifetime) * time.Second
}

func (p *Provider) observeRefresh(snap Snapshot, err error) {
	tags := map[string]string{"provider": p.cfg.Name, "outcome": "success"}
	if err != nil {
		tags["outcome"] = "failure"
		var rerr *RefreshError
		if errors.As(err, &rerr) {
			tags["stage"] = string(rerr.Stage)
		}
		p.metrics.IncCounter("oidc_credential_refresh_total", tags)
		p.logger.Errorf("credential refresh for provider %q failed: %v", p.cfg.Name, err)
		return
	}

	p.metrics.IncCounter("oidc_credential_refresh_total", tags)
	p.metrics.SetGauge("oidc_credential_refresh_delay_seconds",
		p.delayFor(snap).Seconds(), map[string]string{"provider": p.cfg.Name})
	p.logger.Debugf("refreshed credentials for provider %q, %d keys, next refresh in %s",
		p.cfg.Name, snap.Keys.Len(), p.delayFor(snap))
}
