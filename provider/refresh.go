package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/authware/go-oidc-rp/keyset"
	"github.com/authware/go-oidc-rp/oidc"
)

// Fetcher issues the outbound calls a refresh needs. *oidc.Client is the
// production implementation; tests substitute their own.
type Fetcher interface {
	Discovery(ctx context.Context, cfg oidc.ProviderConfig) (oidc.Document, error)
	Keys(ctx context.Context, jwksURI string) ([]byte, http.Header, error)
}

// Stage identifies which step of a refresh attempt failed.
type Stage string

const (
	StageFetchDiscovery Stage = "fetch-discovery"
	StageFetchJWKS      Stage = "fetch-jwks"
	StageParseKeySet    Stage = "parse-key-set"
)

// RefreshError reports a failed refresh attempt tagged with the stage
// that produced it.
type RefreshError struct {
	Stage Stage
	Err   error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed at %s: %s", e.Stage, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// Snapshot is the immutable credential bundle a provider slot serves
// from. It is created whole by a successful refresh and replaced whole
// by the next one; readers never observe a partially updated snapshot.
type Snapshot struct {
	// Document is the normalized discovery document.
	Document oidc.Document
	// Keys is the provider's current signing key set.
	Keys keyset.KeySet
	// RemainingLifetime is how many seconds the JWKS response stays
	// valid per its HTTP caching headers. Only meaningful when
	// LifetimeKnown is true; it may be zero or negative.
	RemainingLifetime int64
	LifetimeKnown     bool
}

// refreshSnapshot performs one complete refresh attempt: discovery
// document, then JWKS with its response headers, then the key set. The
// JWKS response governs freshness, not the discovery document.
func refreshSnapshot(ctx context.Context, client Fetcher, cfg oidc.ProviderConfig) (Snapshot, error) {
	doc, err := client.Discovery(ctx, cfg)
	if err != nil {
		return Snapshot{}, &RefreshError{Stage: StageFetchDiscovery, Err: err}
	}

	jwksBody, jwksHeader, err := client.Keys(ctx, doc.JWKSURI)
	if err != nil {
		return Snapshot{}, &RefreshError{Stage: StageFetchJWKS, Err: err}
	}

	remaining, known := oidc.RemainingLifetime(jwksHeader)

	keys, err := keyset.Parse(jwksBody)
	if err != nil {
		return Snapshot{}, &RefreshError{Stage: StageParseKeySet, Err: err}
	}

	return Snapshot{
		Document:          doc,
		Keys:              keys,
		RemainingLifetime: remaining,
		LifetimeKnown:     known,
	}, nil
}
