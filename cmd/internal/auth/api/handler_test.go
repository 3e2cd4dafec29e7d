package authapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"carelink/cmd/identity"
	"carelink/cmd/internal/auth"
	"carelink/cmd/internal/auth/provider"
	"carelink/cmd/internal/auth/session"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	// Keep Argon2id cheap for tests.
	t.Setenv("CARELINK_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("CARELINK_ARGON2_ITERATIONS", "1")

	tokens, err := session.NewHMACTokenManager(session.Config{
		TokenTTL:   time.Hour,
		SigningKey: []byte(strings.Repeat("k", 32)),
	})
	if err != nil {
		t.Fatalf("NewHMACTokenManager error: %v", err)
	}

	accounts := identity.NewInMemoryStore()
	if err := identity.SeedDemoAccounts(context.Background(), accounts, time.Now().UTC()); err != nil {
		t.Fatalf("seed error: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.NewService(log, auth.Config{StoreTimeout: 3 * time.Second},
		accounts, tokens, session.NewInMemoryStore(), nil)

	providers := provider.NewRegistry(&provider.Static{
		ProviderName: "dev",
		CallbackURL:  "/auth/federated/callback",
		Identity: provider.Identity{
			Email:       "sso.user@example.com",
			DisplayName: "SSO User",
		},
	})

	cfg := Config{
		MaxBodyBytes:       1 << 20,
		CookieSecure:       false,
		LoginRatePerMinute: 600,
		LoginBurst:         100,
		StateTTL:           5 * time.Minute,
	}

	mux := http.NewServeMux()
	NewHandler(log, cfg, svc, providers).Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// postJSON sends a JSON body, carrying over any session cookie.
func postJSON(t *testing.T, srv *httptest.Server, path, body string, cookies []*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return resp
}

func getWithCookies(t *testing.T, srv *httptest.Server, path string, cookies []*http.Cookie) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginMeLogout_Flow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/auth/login",
		`{"email":"john.doe@example.com","password":"password123"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatalf("expected session cookie")
	}

	var body authResponse
	decodeBody(t, resp, &body)
	if !body.Success || body.Account == nil || body.Account.DisplayName != "John Doe" {
		t.Fatalf("unexpected login body %+v", body)
	}
	if body.Token == "" {
		t.Fatalf("expected token in login response")
	}

	resp = getWithCookies(t, srv, "/auth/me", []*http.Cookie{cookie})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
	var me meResponse
	decodeBody(t, resp, &me)
	if me.Account.Email != "john.doe@example.com" {
		t.Fatalf("unexpected me body %+v", me)
	}

	resp = postJSON(t, srv, "/auth/logout", "", []*http.Cookie{cookie})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}

	resp = getWithCookies(t, srv, "/auth/me", []*http.Cookie{cookie})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d", resp.StatusCode)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/auth/login",
		`{"email":"john.doe@example.com","password":"wrongpass"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body authResponse
	decodeBody(t, resp, &body)
	if body.Success {
		t.Fatalf("expected failure body")
	}
	if body.Message != "Invalid email or password" {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if body.Token != "" {
		t.Fatalf("failure must not carry a token")
	}
}

func TestLogin_Validation(t *testing.T) {
	srv := newTestServer(t)

	cases := []string{
		`{"email":"","password":"x"}`,
		`{"email":"a@b.c","password":""}`,
		`{not json`,
		`{"email":"a@b.c","password":"x","extra":"field"}`,
	}
	for _, body := range cases {
		resp := postJSON(t, srv, "/auth/login", body, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestSignup_Flow(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/auth/signup",
		`{"email":"new.user@example.com","display_name":"New User","password":"pw123456","confirm_password":"pw123456"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup status = %d", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}

	var body authResponse
	decodeBody(t, resp, &body)
	if !body.Success || body.Message != "Account created successfully" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Account.Origin != "password" {
		t.Fatalf("unexpected origin %q", body.Account.Origin)
	}

	// Signup logs the account in.
	resp = getWithCookies(t, srv, "/auth/me", []*http.Cookie{cookie})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv, "/auth/signup",
		`{"email":"jane.smith@example.com","display_name":"Jane Again","password":"pw123456","confirm_password":"pw123456"}`, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}

	var body authResponse
	decodeBody(t, resp, &body)
	if body.Success || body.Message != "An account with this email already exists" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSignup_Validation(t *testing.T) {
	srv := newTestServer(t)

	cases := []string{
		`{"email":"","display_name":"X","password":"pw123456","confirm_password":"pw123456"}`,
		`{"email":"x@example.com","display_name":"","password":"pw123456","confirm_password":"pw123456"}`,
		`{"email":"not-an-email","display_name":"X","password":"pw123456","confirm_password":"pw123456"}`,
		`{"email":"x@example.com","display_name":"X","password":"short","confirm_password":"short"}`,
		`{"email":"x@example.com","display_name":"X","password":"pw123456","confirm_password":"different"}`,
	}
	for _, body := range cases {
		resp := postJSON(t, srv, "/auth/signup", body, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestMe_NoCookie(t *testing.T) {
	srv := newTestServer(t)

	resp := getWithCookies(t, srv, "/auth/me", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp := getWithCookies(t, srv, "/auth/login", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /auth/login status = %d", resp.StatusCode)
	}

	resp = postJSON(t, srv, "/auth/me", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("POST /auth/me status = %d", resp.StatusCode)
	}
}

func TestFederated_Flow(t *testing.T) {
	srv := newTestServer(t)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Get(srv.URL + "/auth/federated/start?provider=dev")
	if err != nil {
		t.Fatalf("start error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	var stateCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == stateCookieName {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatalf("expected state cookie")
	}

	loc := resp.Header.Get("Location")
	if !strings.Contains(loc, "state="+stateCookie.Value) {
		t.Fatalf("redirect %q does not carry state", loc)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+loc, nil)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	req.AddCookie(stateCookie)

	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("callback error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}

	var body authResponse
	decodeBody(t, resp, &body)
	if !body.Success || body.Account.Origin != "federated" {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Account.Email != "sso.user@example.com" {
		t.Fatalf("unexpected email %q", body.Account.Email)
	}

	resp = getWithCookies(t, srv, "/auth/me", []*http.Cookie{cookie})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d", resp.StatusCode)
	}
}

func TestFederated_StateMismatch(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet,
		srv.URL+"/auth/federated/callback?provider=dev&state=forged&code=static", nil)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "expected"})

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("callback error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestFederated_UnknownProvider(t *testing.T) {
	srv := newTestServer(t)

	resp := getWithCookies(t, srv, "/auth/federated/start?provider=missing", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
