package provider

import "context"

// Static is a development/test provider returning a fixed identity for any
// code. It stands in for a real external party in local runs and lets the
// federated flow be exercised end to end without network access.
type Static struct {
	ProviderName string
	Identity     Identity
	CallbackURL  string
}

// Name returns the provider identifier.
func (s *Static) Name() string {
	if s.ProviderName == "" {
		return "static"
	}
	return s.ProviderName
}

// AuthCodeURL short-circuits the consent step: the "authorization server" is
// the callback itself.
func (s *Static) AuthCodeURL(state string) string {
	return s.CallbackURL + "?provider=" + s.Name() + "&state=" + state + "&code=static"
}

// Exchange returns the fixed identity regardless of code.
func (s *Static) Exchange(_ context.Context, _ string) (Identity, error) {
	ident := s.Identity
	ident.Provider = s.Name()
	return ident, nil
}
