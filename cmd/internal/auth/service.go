// Package auth implements the authentication facade.
//
// The facade orchestrates the credential store, the session token manager,
// and session persistence behind a uniform Result. It is the only auth
// surface the transport layer calls; CredentialStore and TokenManager are
// never touched directly by consumers.
//
// Per client session key, the effective state machine is
// Unauthenticated -> Authenticating -> Authenticated; any verification
// failure (expired or tampered token) demotes back to Unauthenticated and
// clears the persisted session, so a broken session heals itself on the next
// inspection.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"carelink/cmd/identity"
	"carelink/cmd/internal/auth/provider"
	"carelink/cmd/internal/auth/session"
)

// Display messages for business outcomes. The invalid-credentials message is
// deliberately symmetric: it never reveals whether the email or the password
// was wrong.
const (
	msgLoginOK       = "Login successful"
	msgSignupOK      = "Account created successfully"
	msgInvalidCreds  = "Invalid email or password"
	msgAccountExists = "An account with this email already exists"
	msgInvalidInput  = "Invalid signup details"
)

// Service is the authentication facade.
type Service struct {
	log *slog.Logger
	cfg Config

	accounts identity.Store
	tokens   session.TokenManager
	sessions session.Store

	metrics *Metrics
}

// NewService constructs the facade. metrics may be nil.
func NewService(
	log *slog.Logger,
	cfg Config,
	accounts identity.Store,
	tokens session.TokenManager,
	sessions session.Store,
	metrics *Metrics,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultConfig().StoreTimeout
	}
	return &Service{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		tokens:   tokens,
		sessions: sessions,
		metrics:  metrics,
	}
}

// storeCtx derives the bounded context used for every store call.
func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// Login authenticates an email+password pair and, on success, persists a
// fresh session token under sessionKey.
func (s *Service) Login(ctx context.Context, sessionKey, email, password string) (Result, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acct, ok, err := s.accounts.VerifyPassword(sctx, email, password)
	if err != nil {
		s.metrics.observe("login", "error")
		return Result{}, fmt.Errorf("auth: verify password: %w", err)
	}
	if !ok {
		s.metrics.observe("login", "invalid_credentials")
		s.log.Info("auth.login.rejected")
		return failure(CodeInvalidCredentials, msgInvalidCreds), nil
	}

	res, err := s.establishSession(ctx, sessionKey, acct, msgLoginOK)
	if err != nil {
		s.metrics.observe("login", "error")
		return Result{}, err
	}

	s.metrics.observe("login", "success")
	s.log.Info("auth.login.ok", "account_id", acct.ID)
	return res, nil
}

// Signup creates a password account and logs it in.
//
// The only invariant enforced here is email uniqueness. Field validation
// (format, required-ness, password confirmation) is the caller's
// responsibility; confirmPassword is accepted for interface symmetry and
// never inspected.
func (s *Service) Signup(ctx context.Context, sessionKey, email, displayName, password, confirmPassword string) (Result, error) {
	_ = confirmPassword

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acct, err := s.accounts.CreatePasswordAccount(sctx, identity.CreatePasswordAccountInput{
		Email:       email,
		DisplayName: displayName,
		Password:    password,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			s.metrics.observe("signup", "account_exists")
			s.log.Info("auth.signup.conflict")
			return failure(CodeAccountExists, msgAccountExists), nil
		case identity.IsInvalidInput(err):
			s.metrics.observe("signup", "invalid_input")
			return failure(CodeInvalidInput, msgInvalidInput), nil
		default:
			s.metrics.observe("signup", "error")
			return Result{}, fmt.Errorf("auth: create account: %w", err)
		}
	}

	res, err := s.establishSession(ctx, sessionKey, acct, msgSignupOK)
	if err != nil {
		s.metrics.observe("signup", "error")
		return Result{}, err
	}

	s.metrics.observe("signup", "success")
	s.log.Info("auth.signup.ok", "account_id", acct.ID)
	return res, nil
}

// FederatedLogin logs in with identity facts asserted by an external
// provider, creating the account on first sight of the email. Idempotent per
// email: it never fails with "account exists".
func (s *Service) FederatedLogin(ctx context.Context, sessionKey string, ident provider.Identity) (Result, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	acct, err := s.accounts.FindOrCreateFederatedAccount(sctx, identity.FederatedAccountInput{
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		AvatarURL:   ident.AvatarURL,
	})
	if err != nil {
		if identity.IsInvalidInput(err) {
			s.metrics.observe("federated_login", "invalid_input")
			return failure(CodeInvalidInput, msgInvalidInput), nil
		}
		s.metrics.observe("federated_login", "error")
		return Result{}, fmt.Errorf("auth: federated find-or-create: %w", err)
	}

	res, err := s.establishSession(ctx, sessionKey, acct, msgLoginOK)
	if err != nil {
		s.metrics.observe("federated_login", "error")
		return Result{}, err
	}

	s.metrics.observe("federated_login", "success")
	s.log.Info("auth.federated.ok", "account_id", acct.ID, "provider", ident.Provider)
	return res, nil
}

// Logout clears the persisted session. Logging out an absent session is not
// an error.
func (s *Service) Logout(ctx context.Context, sessionKey string) error {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.sessions.Clear(sctx, sessionKey); err != nil {
		return fmt.Errorf("auth: clear session: %w", err)
	}
	s.log.Info("auth.logout.ok")
	return nil
}

// CurrentAccount returns the account bound to the persisted session, or nil
// when there is none. A token that fails verification (expired, tampered,
// malformed) also clears the persisted session so subsequent calls are cheap.
func (s *Service) CurrentAccount(ctx context.Context, sessionKey string) (*identity.Account, error) {
	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	raw, err := s.sessions.Get(sctx, sessionKey)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: read session: %w", err)
	}

	claims, err := s.tokens.Verify(raw, time.Now().UTC())
	if err != nil {
		// Self-heal: drop the dead session. Best effort; the token is already
		// unusable either way.
		if clearErr := s.sessions.Clear(sctx, sessionKey); clearErr != nil {
			s.log.Warn("auth.session.selfheal.fail", "err", clearErr)
		}
		s.log.Info("auth.session.invalid", "reason", err.Error())
		return nil, nil
	}

	acct := claims.AccountView()
	return &acct, nil
}

// IsAuthenticated reports whether a valid session exists for sessionKey.
func (s *Service) IsAuthenticated(ctx context.Context, sessionKey string) (bool, error) {
	acct, err := s.CurrentAccount(ctx, sessionKey)
	if err != nil {
		return false, err
	}
	return acct != nil, nil
}

// establishSession issues a token for acct and persists it under sessionKey.
func (s *Service) establishSession(ctx context.Context, sessionKey string, acct identity.Account, msg string) (Result, error) {
	now := time.Now().UTC()

	raw, claims, err := s.tokens.Issue(acct, now)
	if err != nil {
		return Result{}, fmt.Errorf("auth: issue token: %w", err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.sessions.Set(sctx, sessionKey, raw, claims.ExpiresAt.Sub(now)); err != nil {
		return Result{}, fmt.Errorf("auth: persist session: %w", err)
	}

	return Result{
		Success:   true,
		Message:   msg,
		Account:   &acct,
		Token:     raw,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
