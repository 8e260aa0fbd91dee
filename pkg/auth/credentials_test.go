package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/ajitpratap0/sheetdb/pkg/errors"
)

func TestStatic(t *testing.T) {
	tok, ok := Static("abc").CurrentToken()
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = Static("").CurrentToken()
	assert.False(t, ok)
}

func TestHolder(t *testing.T) {
	var h Holder
	_, ok := h.CurrentToken()
	assert.False(t, ok)

	h.Set("t1")
	tok, ok := h.CurrentToken()
	assert.True(t, ok)
	assert.Equal(t, "t1", tok)

	h.Clear()
	_, ok = h.CurrentToken()
	assert.False(t, ok)
}

func TestFromTokenSource(t *testing.T) {
	valid := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "live", Expiry: time.Now().Add(time.Hour)})
	tok, ok := FromTokenSource(valid).CurrentToken()
	assert.True(t, ok)
	assert.Equal(t, "live", tok)

	expired := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)})
	_, ok = FromTokenSource(expired).CurrentToken()
	assert.False(t, ok)
}

func TestTokenSourceMissingCredential(t *testing.T) {
	_, err := TokenSource(Static("")).Token()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuthMissing))
}

func TestHTTPClientInjectsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	resp, err := HTTPClient(nil, Static("secret")).Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer secret", got)
}
