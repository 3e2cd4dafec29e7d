package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"carelink/cmd/identity"
	"carelink/cmd/security/token"
)

// Claims is the account envelope carried inside a session token.
type Claims struct {
	AccountID   string
	Email       string
	DisplayName string
	Origin      identity.Origin
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// AccountView reconstructs an Account projection from verified claims.
// It carries only the public fields embedded at issue time; CreatedAt and
// AvatarURL are not part of the token payload.
func (c Claims) AccountView() identity.Account {
	return identity.Account{
		ID:          c.AccountID,
		Email:       c.Email,
		EmailNorm:   identity.NormalizeEmail(c.Email),
		DisplayName: c.DisplayName,
		Origin:      c.Origin,
	}
}

// TokenManager issues and verifies signed session tokens.
type TokenManager interface {
	Issue(acct identity.Account, now time.Time) (raw string, claims Claims, err error)
	Verify(raw string, now time.Time) (Claims, error)
}

// claimsWire is the canonical serialized payload. Timestamps are unix seconds
// so the byte representation is stable across issue and verify.
type claimsWire struct {
	AccountID   string `json:"aid"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Origin      string `json:"origin"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

type hmacTokenManager struct {
	ttl time.Duration
	key []byte
}

// NewHMACTokenManager builds a TokenManager signing with HMAC-SHA256.
//
// Wire format: base64url(payload) "." base64url(mac), with the MAC computed
// over the raw payload bytes. Verification recomputes the MAC and compares in
// constant time; any payload or signature bit flip invalidates the token.
func NewHMACTokenManager(cfg Config) (TokenManager, error) {
	if len(cfg.SigningKey) < token.MinKeyBytes {
		return nil, token.ErrKeyTooShort
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &hmacTokenManager{ttl: ttl, key: cfg.SigningKey}, nil
}

func (m *hmacTokenManager) Issue(acct identity.Account, now time.Time) (string, Claims, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	exp := now.Add(m.ttl)

	claims := Claims{
		AccountID:   acct.ID,
		Email:       acct.Email,
		DisplayName: acct.DisplayName,
		Origin:      acct.Origin,
		IssuedAt:    now,
		ExpiresAt:   exp,
	}

	payload, err := json.Marshal(claimsWire{
		AccountID:   claims.AccountID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Origin:      string(claims.Origin),
		IssuedAt:    claims.IssuedAt.Unix(),
		ExpiresAt:   claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return "", Claims{}, err
	}

	mac := token.SignHMACSHA256(payload, m.key)

	b64 := base64.RawURLEncoding
	raw := b64.EncodeToString(payload) + "." + b64.EncodeToString(mac)
	return raw, claims, nil
}

func (m *hmacTokenManager) Verify(raw string, now time.Time) (Claims, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	raw = strings.TrimSpace(raw)
	// Bounds before any decoding to reject pathological inputs cheaply.
	if raw == "" || len(raw) > 8192 {
		return Claims{}, ErrInvalidToken
	}

	payloadB64, macB64, ok := strings.Cut(raw, ".")
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	b64 := base64.RawURLEncoding
	payload, err := b64.DecodeString(payloadB64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	mac, err := b64.DecodeString(macB64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	// Signature first: claims are untrusted until the MAC checks out.
	if !token.VerifyHMACSHA256(payload, mac, m.key) {
		return Claims{}, ErrInvalidToken
	}

	var w claimsWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if w.AccountID == "" || w.Email == "" {
		return Claims{}, ErrInvalidToken
	}
	origin := identity.Origin(w.Origin)
	if !origin.Valid() {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		AccountID:   w.AccountID,
		Email:       w.Email,
		DisplayName: w.DisplayName,
		Origin:      origin,
		IssuedAt:    time.Unix(w.IssuedAt, 0).UTC(),
		ExpiresAt:   time.Unix(w.ExpiresAt, 0).UTC(),
	}

	if !now.Before(claims.ExpiresAt) {
		return Claims{}, ErrExpiredToken
	}

	return claims, nil
}
