package identity

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemoryStore is a dev/test fallback when Postgres is not configured.
//
// All invariant-bearing operations run under a single mutex, which makes the
// check-and-insert for password signup and the find-or-create for federated
// login atomic. Password hashing happens outside the lock; only the map
// mutation is serialized.
type InMemoryStore struct {
	mu   sync.Mutex
	byID map[string]*memAccount
	// byEmail is keyed by the normalized email.
	byEmail map[string]*memAccount

	dummyHash string
}

type memAccount struct {
	acct Account
	// passwordHash is empty for federated accounts.
	passwordHash string
}

// NewInMemoryStore constructs an empty in-memory account store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[string]*memAccount),
		byEmail:   make(map[string]*memAccount),
		dummyHash: dummyCredentialHash(),
	}
}

// FindByEmail returns the account bound to email.
func (s *InMemoryStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	const op = "identity.FindByEmail"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}
	norm := NormalizeEmail(email)
	if norm == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "missing email"}
	}

	s.mu.Lock()
	rec := s.byEmail[norm]
	s.mu.Unlock()

	if rec == nil {
		return Account{}, NotFoundError{Op: op, Resource: "account"}
	}
	return rec.acct, nil
}

// CreatePasswordAccount creates a password-origin account with its credential.
func (s *InMemoryStore) CreatePasswordAccount(ctx context.Context, in CreatePasswordAccountInput) (Account, error) {
	const op = "identity.CreatePasswordAccount"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || name == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and display name are required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Hash before taking the lock; Argon2id is deliberately slow.
	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return Account{}, err
	}

	id, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	norm := NormalizeEmail(email)
	acct := Account{
		ID:          id,
		Email:       email,
		EmailNorm:   norm,
		DisplayName: name,
		Origin:      OriginPassword,
		CreatedAt:   now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[norm]; exists {
		return Account{}, ConflictError{Op: op, Field: "email"}
	}

	rec := &memAccount{acct: acct, passwordHash: pwHash}
	s.byID[id] = rec
	s.byEmail[norm] = rec

	return acct, nil
}

// VerifyPassword checks email+password, failing closed on unknown email.
func (s *InMemoryStore) VerifyPassword(ctx context.Context, email, password string) (Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, false, err
	}

	norm := NormalizeEmail(email)

	s.mu.Lock()
	rec := s.byEmail[norm]
	var acct Account
	var pwHash string
	if rec != nil {
		acct = rec.acct
		pwHash = rec.passwordHash
	}
	s.mu.Unlock()

	if rec == nil || pwHash == "" {
		// Unknown email or federated account: burn a verification anyway so
		// the caller cannot distinguish the cases by timing.
		if s.dummyHash != "" {
			_, _ = CheckPassword(password, s.dummyHash)
		}
		return Account{}, false, nil
	}

	ok, err := CheckPassword(password, pwHash)
	if err != nil {
		return Account{}, false, err
	}
	if !ok {
		return Account{}, false, nil
	}
	return acct, true, nil
}

// FindOrCreateFederatedAccount returns or atomically creates the federated
// account for in.Email.
func (s *InMemoryStore) FindOrCreateFederatedAccount(ctx context.Context, in FederatedAccountInput) (Account, error) {
	const op = "identity.FindOrCreateFederatedAccount"

	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	email := strings.TrimSpace(in.Email)
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || name == "" {
		return Account{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "email and display name are required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	norm := NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, exists := s.byEmail[norm]; exists {
		if avatar := trimPtr(in.AvatarURL); avatar != nil {
			if rec.acct.AvatarURL == nil || *rec.acct.AvatarURL != *avatar {
				rec.acct.AvatarURL = avatar
			}
		}
		return rec.acct, nil
	}

	id, err := NewULID(now)
	if err != nil {
		return Account{}, err
	}

	acct := Account{
		ID:          id,
		Email:       email,
		EmailNorm:   norm,
		DisplayName: name,
		AvatarURL:   trimPtr(in.AvatarURL),
		Origin:      OriginFederated,
		CreatedAt:   now,
	}

	rec := &memAccount{acct: acct}
	s.byID[id] = rec
	s.byEmail[norm] = rec

	return acct, nil
}

// trimPtr trims a string pointer, returning nil if the result is empty.
func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
