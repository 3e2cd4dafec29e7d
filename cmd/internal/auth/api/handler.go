// Package authapi wires HTTP auth endpoints to the authentication facade.
//
// It is the "UI" of the core in the consumed-by contract: it performs
// field-level validation (required-ness, basic format, password
// confirmation) and translates facade Results into HTTP responses. It never
// touches the credential store or the token manager directly.
package authapi

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"carelink/cmd/identity"
	"carelink/cmd/internal/auth"
	"carelink/cmd/internal/auth/provider"
	"carelink/cmd/internal/auth/session"
)

// Handler exposes the auth HTTP surface.
type Handler struct {
	log *slog.Logger
	cfg Config

	svc       *auth.Service
	providers *provider.Registry

	loginLimit *loginLimiter
}

// NewHandler constructs an auth Handler. providers may be an empty registry
// when no federated provider is configured.
func NewHandler(log *slog.Logger, cfg Config, svc *auth.Service, providers *provider.Registry) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if providers == nil {
		providers = provider.NewRegistry()
	}
	return &Handler{
		log:        log,
		cfg:        cfg,
		svc:        svc,
		providers:  providers,
		loginLimit: newLoginLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
	}
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/signup", h.handleSignup)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.HandleFunc("/auth/federated/start", h.handleFederatedStart)
	mux.HandleFunc("/auth/federated/callback", h.handleFederatedCallback)
	mux.HandleFunc("/auth/me", h.handleMe)
}

func (h *Handler) cookieOpts() session.CookieOptions {
	return session.CookieOptions{
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionKey returns the client's session key, minting a fresh one when the
// request carries none. isNew tells the caller whether a cookie must be set.
func (h *Handler) sessionKey(r *http.Request) (key string, isNew bool, err error) {
	if k, ok := session.KeyFromRequest(r); ok {
		return k, false, nil
	}
	k, err := session.NewKey()
	if err != nil {
		return "", false, err
	}
	return k, true, nil
}

// finishAuth writes the session cookie and the uniform auth response.
func (h *Handler) finishAuth(w http.ResponseWriter, key string, res auth.Result) {
	session.SetCookie(w, key, res.ExpiresAt, h.cookieOpts())
	writeJSON(w, http.StatusOK, authResponse{
		Success: true,
		Message: res.Message,
		Account: toAccountResponse(*res.Account),
		Token:   res.Token,
	})
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	now := time.Now().UTC()
	if !h.loginLimit.allow(identity.NormalizeEmail(email), now) {
		writeRateLimited(w, time.Minute)
		return
	}

	key, _, err := h.sessionKey(r)
	if err != nil {
		h.log.Error("auth.api.session_key.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	res, err := h.svc.Login(r.Context(), key, email, req.Password)
	if err != nil {
		h.log.Error("auth.api.login.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusUnauthorized, authResponse{Success: false, Message: res.Message})
		return
	}

	h.finishAuth(w, key, res)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req signupRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	// Field validation is this layer's job; the facade only enforces email
	// uniqueness.
	if msg, ok := validateSignup(req); !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
		return
	}

	key, _, err := h.sessionKey(r)
	if err != nil {
		h.log.Error("auth.api.session_key.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	res, err := h.svc.Signup(r.Context(), key,
		strings.TrimSpace(req.Email),
		strings.TrimSpace(req.DisplayName),
		req.Password,
		req.ConfirmPassword,
	)
	if err != nil {
		h.log.Error("auth.api.signup.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}
	if !res.Success {
		status := http.StatusConflict
		if res.Code != auth.CodeAccountExists {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, authResponse{Success: false, Message: res.Message})
		return
	}

	h.finishAuth(w, key, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if key, ok := session.KeyFromRequest(r); ok {
		if err := h.svc.Logout(r.Context(), key); err != nil {
			h.log.Error("auth.api.logout.fail", "err", err)
			writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
			return
		}
	}

	session.ClearCookie(w, h.cookieOpts())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	key, ok := session.KeyFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_session", "not authenticated")
		return
	}

	acct, err := h.svc.CurrentAccount(r.Context(), key)
	if err != nil {
		h.log.Error("auth.api.me.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}
	if acct == nil {
		// The facade has already self-cleared the dead session; drop the
		// cookie too.
		session.ClearCookie(w, h.cookieOpts())
		writeError(w, http.StatusUnauthorized, "invalid_session", "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{Account: *toAccountResponse(*acct)})
}

// ---- helpers ----

func validateSignup(req signupRequest) (string, bool) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.DisplayName)

	if email == "" || name == "" || req.Password == "" {
		return "email, display name, and password are required", false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "invalid email address", false
	}
	if len(req.Password) < 8 {
		return "password must be at least 8 characters", false
	}
	if req.Password != req.ConfirmPassword {
		return "passwords do not match", false
	}
	return "", true
}

func toAccountResponse(a identity.Account) *accountResponse {
	return &accountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		AvatarURL:   a.AvatarURL,
		Origin:      string(a.Origin),
		CreatedAt:   a.CreatedAt,
	}
}
