// Package google implements the Google OIDC identity provider.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"carelink/cmd/internal/auth/provider"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "google"

// Provider authenticates users against Google and returns verified identity
// facts. It performs no account creation or session management.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// New constructs the Google provider from OAuth client configuration.
func New(ctx context.Context, clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for a verified Google identity.
func (p *Provider) Exchange(ctx context.Context, code string) (provider.Identity, error) {
	tok, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return provider.Identity{}, fmt.Errorf("google: code exchange failed: %w", err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return provider.Identity{}, errors.New("google: token response missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return provider.Identity{}, fmt.Errorf("google: id_token verification failed: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return provider.Identity{}, fmt.Errorf("google: failed to parse id_token claims: %w", err)
	}

	if strings.TrimSpace(claims.Email) == "" || !claims.EmailVerified {
		return provider.Identity{}, errors.New("google: account email not verified")
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		// Some consent configurations omit the profile name.
		name = claims.Email
		if i := strings.IndexByte(name, '@'); i > 0 {
			name = name[:i]
		}
	}

	ident := provider.Identity{
		Provider:    providerName,
		Email:       claims.Email,
		DisplayName: name,
	}
	if pic := strings.TrimSpace(claims.Picture); pic != "" {
		ident.AvatarURL = &pic
	}
	return ident, nil
}
