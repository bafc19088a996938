package csrf

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "formgate/pkg/testutil"
)

func TestIssue(t *testing.T) {
	g := New(WithCookieName("anti_forgery"), WithMaxAge(30*time.Minute))

	token, cookie, err := g.Issue()
	require.NoError(t, err)

	assert.Len(t, string(token), 43, "32 bytes base64url without padding")
	assert.Equal(t, "anti_forgery", cookie.Name)
	assert.Equal(t, string(token), cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 1800, cookie.MaxAge)
	assert.True(t, cookie.Secure)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	other, _, err := g.Issue()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestIssueEntropyFailure(t *testing.T) {
	g := New(WithRandom(func([]byte) (int, error) { return 0, errors.New("entropy exhausted") }))

	_, _, err := g.Issue()
	assert.ErrorContains(t, err, "entropy exhausted")
}

func TestValidate(t *testing.T) {
	g := New()

	tests := []struct {
		name   string
		header string
		cookie string
		want   bool
	}{
		{"both absent", "", "", false},
		{"header absent", "", "abc", false},
		{"cookie absent", "abc", "", false},
		{"mismatch", "abc", "abd", false},
		{"prefix mismatch", "abc", "abcd", false},
		{"exact match", "abc", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Validate(tt.header, tt.cookie))
		})
	}
}

func TestValidateRequest(t *testing.T) {
	g := New()
	token, cookie, err := g.Issue()
	require.NoError(t, err)

	t.Run("issued pair is accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderName, string(token))
		req.AddCookie(cookie)
		assert.True(t, g.ValidateRequest(req))
	})

	t.Run("missing cookie is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderName, string(token))
		assert.False(t, g.ValidateRequest(req))
	})

	t.Run("cookie under another name is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set(HeaderName, string(token))
		req.AddCookie(&http.Cookie{Name: "other", Value: string(token)})
		assert.False(t, g.ValidateRequest(req))
	})
}

func TestIssuedTokenRoundTrip(t *testing.T) {
	g := New()

	tu.Given(t, "a freshly issued token", func(t *testing.T) {
		token, cookie, err := g.Issue()
		require.NoError(t, err)

		tu.When(t, "the client echoes it in the header", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.AddCookie(cookie)
			req.Header.Set(HeaderName, string(token))

			tu.Then(t, "the request is valid", func(t *testing.T) {
				assert.True(t, g.ValidateRequest(req))
			})
		})

		tu.When(t, "the client echoes a token from another issue", func(t *testing.T) {
			other, _, err := g.Issue()
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.AddCookie(cookie)
			req.Header.Set(HeaderName, string(other))

			tu.Then(t, "the request is rejected", func(t *testing.T) {
				assert.False(t, g.ValidateRequest(req))
			})
		})
	})
}
