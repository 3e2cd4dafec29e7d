package auth

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"carelink/cmd/identity"
	"carelink/cmd/internal/auth/provider"
	"carelink/cmd/internal/auth/session"
)

type testEnv struct {
	svc      *Service
	accounts *identity.InMemoryStore
	sessions *session.InMemoryStore
}

func newTestEnv(t *testing.T, ttl time.Duration) testEnv {
	t.Helper()

	// Keep Argon2id cheap for tests.
	t.Setenv("CARELINK_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CARELINK_ARGON2_ITERATIONS", "1")

	tokens, err := session.NewHMACTokenManager(session.Config{
		TokenTTL:   ttl,
		SigningKey: []byte(strings.Repeat("k", 32)),
	})
	if err != nil {
		t.Fatalf("NewHMACTokenManager error: %v", err)
	}

	accounts := identity.NewInMemoryStore()
	sessions := session.NewInMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(log, Config{StoreTimeout: 3 * time.Second}, accounts, tokens, sessions, nil)
	return testEnv{svc: svc, accounts: accounts, sessions: sessions}
}

func seed(t *testing.T, env testEnv) {
	t.Helper()
	if err := identity.SeedDemoAccounts(context.Background(), env.accounts, time.Now().UTC()); err != nil {
		t.Fatalf("seed error: %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	seed(t, env)
	ctx := context.Background()

	res, err := env.svc.Login(ctx, "sess-1", "john.doe@example.com", "password123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Message != "Login successful" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if res.Account == nil || res.Account.DisplayName != "John Doe" {
		t.Fatalf("unexpected account %+v", res.Account)
	}
	if res.Token == "" {
		t.Fatalf("expected a session token")
	}

	acct, err := env.svc.CurrentAccount(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CurrentAccount error: %v", err)
	}
	if acct == nil || acct.Email != "john.doe@example.com" {
		t.Fatalf("unexpected current account %+v", acct)
	}

	ok, err := env.svc.IsAuthenticated(ctx, "sess-1")
	if err != nil || !ok {
		t.Fatalf("expected authenticated, got (%v, %v)", ok, err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	seed(t, env)
	ctx := context.Background()

	cases := []struct{ email, password string }{
		{"john.doe@example.com", "wrongpass"},
		{"nobody@example.com", "password123"},
	}
	for _, c := range cases {
		res, err := env.svc.Login(ctx, "sess-1", c.email, c.password)
		if err != nil {
			t.Fatalf("Login error: %v", err)
		}
		if res.Success {
			t.Fatalf("expected failure for %q", c.email)
		}
		if res.Code != CodeInvalidCredentials {
			t.Fatalf("expected invalid_credentials, got %q", res.Code)
		}
		// Same message whether the email or the password was wrong.
		if res.Message != "Invalid email or password" {
			t.Fatalf("unexpected message %q", res.Message)
		}
		if res.Token != "" || res.Account != nil {
			t.Fatalf("failure must not carry a session")
		}
	}

	ok, err := env.svc.IsAuthenticated(ctx, "sess-1")
	if err != nil || ok {
		t.Fatalf("expected unauthenticated after failed login, got (%v, %v)", ok, err)
	}
}

func TestSignup_SuccessAndConflict(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	seed(t, env)
	ctx := context.Background()

	res, err := env.svc.Signup(ctx, "sess-1", "new.user@example.com", "New User", "pw123456", "pw123456")
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if !res.Success || res.Message != "Account created successfully" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Account.Origin != identity.OriginPassword {
		t.Fatalf("unexpected origin %q", res.Account.Origin)
	}

	ok, err := env.svc.IsAuthenticated(ctx, "sess-1")
	if err != nil || !ok {
		t.Fatalf("expected signup to log in, got (%v, %v)", ok, err)
	}

	// An existing seeded email conflicts regardless of casing.
	res, err = env.svc.Signup(ctx, "sess-2", "Jane.Smith@Example.com", "Jane Again", "pw123456", "pw123456")
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if res.Success || res.Code != CodeAccountExists {
		t.Fatalf("expected account_exists, got %+v", res)
	}
	if res.Message != "An account with this email already exists" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestSignup_InvalidInput(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	res, err := env.svc.Signup(ctx, "sess-1", "short.pw@example.com", "Short", "pw", "pw")
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if res.Success || res.Code != CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %+v", res)
	}
}

func TestFederatedLogin_FindOrCreate(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	ident := provider.Identity{
		Provider:    "google",
		Email:       "sso.user@example.com",
		DisplayName: "SSO User",
	}

	res, err := env.svc.FederatedLogin(ctx, "sess-1", ident)
	if err != nil {
		t.Fatalf("FederatedLogin error: %v", err)
	}
	if !res.Success {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Account.Origin != identity.OriginFederated {
		t.Fatalf("unexpected origin %q", res.Account.Origin)
	}
	firstID := res.Account.ID

	// Second login with the same email reuses the account.
	res, err = env.svc.FederatedLogin(ctx, "sess-2", ident)
	if err != nil {
		t.Fatalf("FederatedLogin error: %v", err)
	}
	if res.Account.ID != firstID {
		t.Fatalf("expected same account, got %s and %s", firstID, res.Account.ID)
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	seed(t, env)
	ctx := context.Background()

	if _, err := env.svc.Login(ctx, "sess-1", "admin@company.com", "admin123"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	if err := env.svc.Logout(ctx, "sess-1"); err != nil {
		t.Fatalf("Logout error: %v", err)
	}

	ok, err := env.svc.IsAuthenticated(ctx, "sess-1")
	if err != nil || ok {
		t.Fatalf("expected unauthenticated after logout, got (%v, %v)", ok, err)
	}

	// Logging out again is a no-op.
	if err := env.svc.Logout(ctx, "sess-1"); err != nil {
		t.Fatalf("second Logout error: %v", err)
	}
}

func TestCurrentAccount_NoSession(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	acct, err := env.svc.CurrentAccount(ctx, "never-seen")
	if err != nil {
		t.Fatalf("CurrentAccount error: %v", err)
	}
	if acct != nil {
		t.Fatalf("expected nil account, got %+v", acct)
	}
}

func TestCurrentAccount_SelfHealsDeadSession(t *testing.T) {
	env := newTestEnv(t, time.Hour)
	ctx := context.Background()

	// A persisted entry holding a token that fails verification must be
	// treated as unauthenticated and cleared.
	if err := env.sessions.Set(ctx, "sess-1", "garbage.token", time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	acct, err := env.svc.CurrentAccount(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CurrentAccount error: %v", err)
	}
	if acct != nil {
		t.Fatalf("expected nil account for dead session, got %+v", acct)
	}

	if _, err := env.sessions.Get(ctx, "sess-1"); err != session.ErrNoSession {
		t.Fatalf("expected session to be cleared, got %v", err)
	}
}

func TestCurrentAccount_ExpiredSession(t *testing.T) {
	env := newTestEnv(t, 10*time.Millisecond)
	seed(t, env)
	ctx := context.Background()

	if _, err := env.svc.Login(ctx, "sess-1", "john.doe@example.com", "password123"); err != nil {
		t.Fatalf("Login error: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	acct, err := env.svc.CurrentAccount(ctx, "sess-1")
	if err != nil {
		t.Fatalf("CurrentAccount error: %v", err)
	}
	if acct != nil {
		t.Fatalf("expected expired session to read as unauthenticated")
	}
}
