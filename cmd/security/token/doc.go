// Package token provides the keyed-MAC primitives for Carelink session tokens.
//
// It is the single source of truth for signing-key provisioning and the
// HMAC-SHA256 construction. The key is loaded from the environment at
// process start and is never a source literal:
//
//   - CARELINK_SESSION_HMAC_KEY: required, minimum 32 bytes.
//
// Signing is deterministic: same key + same payload => same signature, and a
// single-bit payload change invalidates it.
package token
