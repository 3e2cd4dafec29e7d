package authapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

const stateCookieName = "__Host-carelink_oauth_state"

// handleFederatedStart redirects the client to the provider's consent page.
// The anti-CSRF state round-trips through a short-lived cookie.
func (h *Handler) handleFederatedStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, err := h.providers.Get(strings.TrimSpace(r.URL.Query().Get("provider")))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider", err.Error())
		return
	}

	state, err := newStateToken()
	if err != nil {
		h.log.Error("auth.api.federated.state.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(h.cfg.StateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthCodeURL(state), http.StatusFound)
}

// handleFederatedCallback finishes the provider flow: state check, code
// exchange, then find-or-create login through the facade.
func (h *Handler) handleFederatedCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	p, err := h.providers.Get(strings.TrimSpace(q.Get("provider")))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_provider", err.Error())
		return
	}

	if !h.stateValid(r, q.Get("state")) {
		writeError(w, http.StatusForbidden, "invalid_state", "state mismatch")
		return
	}
	h.clearStateCookie(w)

	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing code")
		return
	}

	ident, err := p.Exchange(r.Context(), code)
	if err != nil {
		h.log.Error("auth.api.federated.exchange.fail", "provider", p.Name(), "err", err)
		writeError(w, http.StatusBadGateway, "provider_error", "identity provider rejected the request")
		return
	}

	key, _, err := h.sessionKey(r)
	if err != nil {
		h.log.Error("auth.api.session_key.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	res, err := h.svc.FederatedLogin(r.Context(), key, ident)
	if err != nil {
		h.log.Error("auth.api.federated.fail", "err", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "please retry later")
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusBadRequest, authResponse{Success: false, Message: res.Message})
		return
	}

	h.finishAuth(w, key, res)
}

func (h *Handler) stateValid(r *http.Request, got string) bool {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	want := strings.TrimSpace(c.Value)
	got = strings.TrimSpace(got)
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func (h *Handler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
