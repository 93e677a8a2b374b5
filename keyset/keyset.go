// Package keyset holds the provider's published signing keys and verifies
// token signatures against them.
package keyset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
)

var (
	// ErrMalformedToken is returned when the token cannot be split into
	// its structural parts.
	ErrMalformedToken = errors.New("malformed token")

	// ErrMissingAlgorithm is returned when the token's protected header
	// carries no alg field.
	ErrMissingAlgorithm = errors.New("token header is missing the alg field")

	// ErrVerificationFailed is returned when the signature does not
	// validate against any candidate key.
	ErrVerificationFailed = errors.New("token signature verification failed")

	// ErrClaimsNotJSON is returned when the signature validates but the
	// payload is not a JSON object.
	ErrClaimsNotJSON = errors.New("claims did not contain a JSON payload")

	// ErrEmptyKeySet is returned when a key set without keys is used for
	// verification.
	ErrEmptyKeySet = errors.New("key set contains no keys")
)

// KeySet is one or more public signing keys. A singleton set verifies
// strictly against its one key; a set with several keys tries them in
// sequence order, which covers the rollover window where a provider
// publishes both the old and the new signing key.
type KeySet struct {
	keys   []jwk.Key
	single bool
}

// Single builds a key set holding exactly one key.
func Single(key jwk.Key) KeySet {
	return KeySet{keys: []jwk.Key{key}, single: true}
}

// Multiple builds a key set from the given keys in the given order.
func Multiple(keys ...jwk.Key) KeySet {
	if len(keys) == 1 {
		return Single(keys[0])
	}
	return KeySet{keys: keys}
}

// Parse decodes a JWKS document into a KeySet. A document with a single
// key yields a singleton set.
func Parse(body []byte) (KeySet, error) {
	set, err := jwk.Parse(body)
	if err != nil {
		return KeySet{}, fmt.Errorf("could not parse JWKS: %w", err)
	}

	keys := make([]jwk.Key, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return KeySet{}, ErrEmptyKeySet
	}

	return Multiple(keys...), nil
}

// Len reports the number of keys in the set.
func (s KeySet) Len() int { return len(s.keys) }

// Keys returns the keys in sequence order.
func (s KeySet) Keys() []jwk.Key { return s.keys }

// Verify checks the token's signature against the key set and returns the
// decoded claims. The algorithm is taken from the token's own protected
// header and verification is restricted to exactly that algorithm per key;
// a caller can never widen it to "any algorithm". This closes the
// algorithm confusion class of attacks while still allowing different
// algorithms across rotated keys.
//
// Failures are reported as typed errors (ErrMalformedToken,
// ErrMissingAlgorithm, ErrVerificationFailed, ErrClaimsNotJSON); a bad
// token is expected traffic, not a fault.
func (s KeySet) Verify(token []byte) (map[string]any, error) {
	if len(s.keys) == 0 {
		return nil, ErrEmptyKeySet
	}

	alg, err := declaredAlgorithm(token)
	if err != nil {
		return nil, err
	}

	if s.single {
		payload, err := jws.Verify(token, jws.WithKey(alg, s.keys[0]))
		if err != nil {
			return nil, ErrVerificationFailed
		}
		return decodeClaims(payload)
	}

	// Rotation window: the first key that verifies wins.
	for _, key := range s.keys {
		payload, err := jws.Verify(token, jws.WithKey(alg, key))
		if err != nil {
			continue
		}
		return decodeClaims(payload)
	}

	return nil, ErrVerificationFailed
}

// declaredAlgorithm peeks at the token's protected header without
// verifying the signature and extracts the alg field.
func declaredAlgorithm(token []byte) (jwa.SignatureAlgorithm, error) {
	msg, err := jws.Parse(token)
	if err != nil {
		return "", ErrMalformedToken
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return "", ErrMalformedToken
	}

	alg := sigs[0].ProtectedHeaders().Algorithm()
	if alg == "" {
		return "", ErrMissingAlgorithm
	}
	return alg, nil
}

// decodeClaims decodes the verified payload as a JSON object. A valid
// signature over a non-JSON payload is still a failure: signature
// validity alone is not sufficient.
func decodeClaims(payload []byte) (map[string]any, error) {
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrClaimsNotJSON
	}
	return claims, nil
}
