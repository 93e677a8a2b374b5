// Package oidcrp is an OpenID Connect relying-party helper. It keeps a
// provider's discovery metadata and signing keys fresh in a background
// cache and verifies bearer tokens presented on inbound requests or
// stored in a session.
//
// The moving parts:
//
//   - provider.Registry owns one background actor per provider slot. The
//     actor fetches the discovery document and JWKS, derives the next
//     refresh delay from the JWKS response's HTTP caching headers, and
//     serves consistent credential snapshots to readers.
//   - keyset.KeySet verifies token signatures strictly against the
//     algorithm declared in the token's own protected header.
//   - Verifier is the request-time entry point: it reads the current key
//     set through the registry and runs signature verification, optionally
//     caching positive results.
//   - Middleware and SessionMiddleware wire the Verifier into net/http
//     request handling; framework adapters for echo, gin and gRPC live
//     under framework/.
//
// Basic usage:
//
//	registry := provider.NewRegistry()
//	_, err := registry.Start(ctx, oidc.ProviderConfig{
//		Name:      "default",
//		IssuerURL: "https://issuer.example.com",
//		ClientID:  "my-client",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer registry.StopAll()
//
//	verifier, err := oidcrp.NewVerifier(registry)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	mw, err := oidcrp.New(oidcrp.WithVerifyToken(verifier.Verify))
//	if err != nil {
//		log.Fatal(err)
//	}
//	http.Handle("/api", mw.CheckToken(apiHandler))
package oidcrp
