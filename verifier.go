package oidcrp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/authware/go-oidc-rp/internal/cache"
	"github.com/authware/go-oidc-rp/provider"
)

// Verifier is the request-time entry point for token verification. It
// reads the current key set through the provider registry, so callers
// always verify against a consistent credential snapshot, and hides the
// existence of the background cache.
type Verifier struct {
	registry     *provider.Registry
	providerName string

	// Optional positive-result cache. Only successful verifications are
	// cached, keyed by token digest, capped by the token's own expiry.
	cache    cache.Cache
	cacheTTL time.Duration
	group    singleflight.Group

	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier) error

// WithProviderName selects which provider slot the verifier reads keys
// from.
//
// Default: provider.DefaultProviderName
func WithProviderName(name string) VerifierOption {
	return func(v *Verifier) error {
		if name == "" {
			return errors.New("provider name cannot be empty")
		}
		v.providerName = name
		return nil
	}
}

// WithResultCache enables caching of successful verifications for at
// most ttl, never beyond the token's own exp claim. Concurrent
// verifications of the same token are collapsed into one signature
// check.
func WithResultCache(ttl time.Duration) VerifierOption {
	return func(v *Verifier) error {
		if ttl <= 0 {
			return errors.New("result cache TTL must be positive")
		}
		c, err := cache.NewRistrettoCache(100_000, 10_000, 64)
		if err != nil {
			return err
		}
		v.cache = c
		v.cacheTTL = ttl
		return nil
	}
}

// WithVerifierTracer sets the tracer for verification spans.
func WithVerifierTracer(t Tracer) VerifierOption {
	return func(v *Verifier) error {
		if t == nil {
			return errors.New("tracer cannot be nil")
		}
		v.tracer = t
		return nil
	}
}

// WithVerifierMetrics sets the metrics sink for verification counters.
func WithVerifierMetrics(m Metrics) VerifierOption {
	return func(v *Verifier) error {
		if m == nil {
			return errors.New("metrics cannot be nil")
		}
		v.metrics = m
		return nil
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(l Logger) VerifierOption {
	return func(v *Verifier) error {
		if l == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = l
		return nil
	}
}

// NewVerifier builds a Verifier reading keys from the given registry.
func NewVerifier(registry *provider.Registry, opts ...VerifierOption) (*Verifier, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}

	v := &Verifier{
		registry:     registry,
		providerName: provider.DefaultProviderName,
		tracer:       NoopTracer{},
		metrics:      NoopMetrics{},
		logger:       NoopLogger{},
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}

	return v, nil
}

// Verify checks the token's signature against the provider's current key
// set and returns its claims. Failures come back as the keyset package's
// typed errors; a bad token is routine traffic, never a fault.
func (v *Verifier) Verify(ctx context.Context, token string) (map[string]any, error) {
	ctx, span := v.tracer.StartSpan(ctx, "oidcrp.verify")
	defer span.Finish()
	span.SetTag("provider", v.providerName)

	start := time.Now()
	defer func() {
		v.metrics.ObserveHistogram("oidc_verification_duration_seconds",
			time.Since(start).Seconds(), map[string]string{"provider": v.providerName})
	}()

	key := tokenDigest(token)

	if v.cache != nil {
		if cached, ok := v.cache.Get(key); ok {
			if claims, ok := cached.(map[string]any); ok {
				span.SetTag("outcome", "cache_hit")
				v.countVerification("success")
				return claims, nil
			}
		}
	}

	result, err, _ := v.group.Do(key, func() (any, error) {
		return v.verifyOnce(ctx, key, token)
	})
	if err != nil {
		span.SetTag("outcome", "failure")
		v.countVerification("failure")
		return nil, err
	}

	span.SetTag("outcome", "success")
	v.countVerification("success")
	return result.(map[string]any), nil
}

func (v *Verifier) verifyOnce(ctx context.Context, key, token string) (map[string]any, error) {
	p, err := v.registry.Provider(v.providerName)
	if err != nil {
		return nil, err
	}

	keys, err := p.KeySet(ctx)
	if err != nil {
		return nil, err
	}

	claims, err := keys.Verify([]byte(token))
	if err != nil {
		return nil, err
	}

	if v.cache != nil {
		if ttl := v.resultTTL(claims); ttl > 0 {
			v.cache.Set(key, claims, 1, ttl)
			// Ristretto applies writes asynchronously; flush so the next
			// read of the same token hits the cache.
			if waiter, ok := v.cache.(interface{ Wait() }); ok {
				waiter.Wait()
			}
		}
	}

	return claims, nil
}

// resultTTL caps the configured cache TTL by the token's exp claim so a
// cached entry can never outlive the token itself.
func (v *Verifier) resultTTL(claims map[string]any) time.Duration {
	ttl := v.cacheTTL
	exp, ok := claims["exp"].(float64)
	if !ok {
		return ttl
	}
	untilExpiry := time.Until(time.Unix(int64(exp), 0))
	if untilExpiry < ttl {
		ttl = untilExpiry
	}
	return ttl
}

func (v *Verifier) countVerification(outcome string) {
	v.metrics.IncCounter("oidc_token_verifications_total",
		map[string]string{"provider": v.providerName, "outcome": outcome})
}

func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
