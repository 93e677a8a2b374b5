package oidc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingResponseTypes is returned by ParseDocument when the provider
// metadata does not contain the required response_types_supported field.
var ErrMissingResponseTypes = errors.New("discovery document is missing response_types_supported")

// Document holds the provider metadata published at the issuer's
// well-known configuration endpoint. The fields below cover the endpoints
// and capability lists a relying party needs; everything else the provider
// publishes remains available through Raw.
type Document struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint"`
	UserinfoEndpoint                 string   `json:"userinfo_endpoint"`
	EndSessionEndpoint               string   `json:"end_session_endpoint"`
	JWKSURI                          string   `json:"jwks_uri"`
	ScopesSupported                  []string `json:"scopes_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported"`
	ClaimsSupported                  []string `json:"claims_supported"`

	// Raw is the full decoded document, with claims_supported and
	// response_types_supported replaced by their normalized forms.
	Raw map[string]any `json:"-"`
}

// ParseDocument decodes provider metadata and normalizes it so that two
// fetches of the same configuration compare equal regardless of the order
// the provider lists values in.
//
// Two fields are canonicalized: claims_supported defaults to an empty list
// when absent and is sorted; each response_types_supported entry is treated
// as a space-separated list of response type tokens which are sorted and
// rejoined. response_types_supported itself is required, a document without
// it is rejected.
func ParseDocument(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("could not decode discovery document: %w", err)
	}
	if err := json.Unmarshal(body, &doc.Raw); err != nil {
		return Document{}, fmt.Errorf("could not decode discovery document: %w", err)
	}

	if _, ok := doc.Raw["response_types_supported"]; !ok {
		return Document{}, ErrMissingResponseTypes
	}

	if doc.ClaimsSupported == nil {
		doc.ClaimsSupported = []string{}
	}
	sort.Strings(doc.ClaimsSupported)

	for i, entry := range doc.ResponseTypesSupported {
		doc.ResponseTypesSupported[i] = normalizeResponseType(entry)
	}

	doc.Raw["claims_supported"] = doc.ClaimsSupported
	doc.Raw["response_types_supported"] = doc.ResponseTypesSupported

	return doc, nil
}

// normalizeResponseType sorts the space-separated tokens of a single
// response type entry, e.g. "token id_token" becomes "id_token token".
func normalizeResponseType(entry string) string {
	tokens := strings.Fields(entry)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
