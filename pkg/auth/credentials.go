// Package auth supplies bearer credentials to the remote store.
//
// Acquiring a token (consent screens, refresh flows) happens elsewhere; this
// package only answers "is there a usable token right now" and injects it
// into outgoing requests.
package auth

import (
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
)

// CredentialSource reports the bearer token currently available.
type CredentialSource interface {
	CurrentToken() (string, bool)
}

// Static is a fixed token. The empty string means no credential.
type Static string

// CurrentToken implements CredentialSource.
func (s Static) CurrentToken() (string, bool) {
	return string(s), s != ""
}

// Holder is a credential that the sign-in flow can set and clear at runtime.
type Holder struct {
	mu    sync.RWMutex
	token string
}

// Set replaces the held token.
func (h *Holder) Set(token string) {
	h.mu.Lock()
	h.token = token
	h.mu.Unlock()
}

// Clear forgets the held token, e.g. on sign-out.
func (h *Holder) Clear() {
	h.Set("")
}

// CurrentToken implements CredentialSource.
func (h *Holder) CurrentToken() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token, h.token != ""
}

type tokenSourceCredentials struct {
	src oauth2.TokenSource
}

// FromTokenSource adapts an oauth2.TokenSource. A token that cannot be
// obtained, or that is no longer valid, counts as missing.
func FromTokenSource(src oauth2.TokenSource) CredentialSource {
	return tokenSourceCredentials{src: oauth2.ReuseTokenSource(nil, src)}
}

func (t tokenSourceCredentials) CurrentToken() (string, bool) {
	tok, err := t.src.Token()
	if err != nil || !tok.Valid() {
		return "", false
	}
	return tok.AccessToken, true
}

type credentialTokenSource struct {
	creds CredentialSource
}

// TokenSource exposes creds as an oauth2.TokenSource. Token fails with an
// auth_missing error when creds has nothing to offer.
func TokenSource(creds CredentialSource) oauth2.TokenSource {
	return credentialTokenSource{creds: creds}
}

func (c credentialTokenSource) Token() (*oauth2.Token, error) {
	token, ok := c.creds.CurrentToken()
	if !ok {
		return nil, errors.New(errors.ErrorTypeAuthMissing, "no bearer credential available")
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// HTTPClient returns a client that adds the current bearer token to every
// request sent through base. A nil base uses http.DefaultTransport.
func HTTPClient(base http.RoundTripper, creds CredentialSource) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: TokenSource(creds),
			Base:   base,
		},
	}
}
