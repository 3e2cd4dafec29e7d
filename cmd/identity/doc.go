// Package identity implements Carelink's account & credential foundation.
//
// It contains the Account model, email canonicalization, password hashing
// glue, and the Store persistence boundary used by the authentication layer.
//
// Accounts have two origins: password signup (backed by an Argon2id
// credential) and federated login (no credential row). Email uniqueness is
// enforced inside the store as a single atomic operation; callers never do a
// separate check-then-insert.
package identity
