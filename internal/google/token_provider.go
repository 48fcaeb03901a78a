package google

import (
	"context"

	"golang.org/x/oauth2"
)

// StaticCredentials is a CredentialSource that always returns the same
// record. It is meant for tools and tests that already hold a token.
type StaticCredentials struct {
	Credential *Credential
}

// ValidCredentials returns the wrapped record, or ErrNotAuthenticated when
// there is none.
func (s StaticCredentials) ValidCredentials(_ context.Context) (*Credential, error) {
	if s.Credential == nil || s.Credential.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return s.Credential, nil
}

// TokenSource returns a token source for a credential that has already
// passed the gate. It never refreshes on its own.
func TokenSource(cred *Credential) oauth2.TokenSource {
	return oauth2.StaticTokenSource(cred.Token())
}
