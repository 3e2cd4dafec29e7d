// Package provider defines the pluggable federated identity boundary.
//
// A Provider authenticates a user with an external party and returns identity
// facts only: email, display name, avatar. It makes no account decisions; the
// authentication core applies find-or-create semantics over the returned
// tuple and is agnostic to how the identity was obtained.
package provider

import "context"

// Identity is the normalized result of a federated authentication.
type Identity struct {
	Provider    string // e.g. "google"
	Email       string
	DisplayName string
	AvatarURL   *string
}

// Provider is the contract every external identity provider implements.
type Provider interface {
	// Name returns the provider identifier (e.g. "google").
	Name() string

	// AuthCodeURL returns the URL the client is redirected to for consent.
	// State is supplied by the caller and must round-trip unchanged.
	AuthCodeURL(state string) string

	// Exchange trades the authorization code for a verified Identity.
	Exchange(ctx context.Context, code string) (Identity, error)
}
