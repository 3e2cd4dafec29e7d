package identity

import (
	"context"
	"time"
)

// Origin records how an account was created.
type Origin string

const (
	// OriginPassword is an account created via email+password signup.
	OriginPassword Origin = "password"
	// OriginFederated is an account created on first federated login.
	OriginFederated Origin = "federated"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	return o == OriginPassword || o == OriginFederated
}

// Account is Carelink's canonical security principal.
//
// Accounts are immutable after creation except for AvatarURL, which a
// federated login may refresh when the provider supplies a newer picture.
type Account struct {
	ID          string
	Email       string
	EmailNorm   string
	DisplayName string
	AvatarURL   *string
	Origin      Origin

	CreatedAt time.Time
}

// CreatePasswordAccountInput describes a password signup request.
// Password is the plain password; the store hashes it before persisting.
type CreatePasswordAccountInput struct {
	Email       string
	DisplayName string
	Password    string
	Now         time.Time
}

// FederatedAccountInput describes identity facts asserted by an external
// identity provider. The store is agnostic to how they were obtained.
type FederatedAccountInput struct {
	Email       string
	DisplayName string
	AvatarURL   *string
	Now         time.Time
}

// Store is the account/credential persistence boundary.
//
// Implementations must make CreatePasswordAccount and
// FindOrCreateFederatedAccount atomic with respect to the email uniqueness
// invariant: two concurrent creates for the same email must yield exactly one
// account.
type Store interface {
	// FindByEmail returns the account bound to email (case-insensitive).
	// Returns a NotFoundError when no account exists.
	FindByEmail(ctx context.Context, email string) (Account, error)

	// CreatePasswordAccount creates a password-origin account plus its
	// credential row. Returns a ConflictError (field "email") when the email
	// is already bound to an account, regardless of that account's origin.
	CreatePasswordAccount(ctx context.Context, in CreatePasswordAccountInput) (Account, error)

	// VerifyPassword checks email+password. It fails closed: an unknown
	// email or a federated account without a credential yields (false, nil)
	// after a dummy hash verification to keep timing uniform.
	VerifyPassword(ctx context.Context, email, password string) (Account, bool, error)

	// FindOrCreateFederatedAccount returns the account for email, creating a
	// federated-origin account (no credential) if none exists. Idempotent per
	// email; an existing account's avatar is refreshed when the provider
	// supplies a different non-empty one.
	FindOrCreateFederatedAccount(ctx context.Context, in FederatedAccountInput) (Account, error)
}
