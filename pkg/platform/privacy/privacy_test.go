package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"password", "X-CSRF-Token", "apiKey", "client_secret", "Authorization", "Cookie", "session_id"} {
		assert.True(t, IsSensitiveKey(key), key)
	}
	for _, key := range []string{"email", "name", "message", "phone"} {
		assert.False(t, IsSensitiveKey(key), key)
	}
}

func TestRedactMap(t *testing.T) {
	in := map[string]any{"email": "jo@x.com", "password": "hunter2"}
	out := RedactMap(in)

	assert.Equal(t, "jo@x.com", out["email"])
	assert.Equal(t, Redacted, out["password"])
	assert.Equal(t, "hunter2", in["password"], "input must not be modified")
}

func TestRedactMapNested(t *testing.T) {
	in := map[string]any{
		"user": map[string]any{
			"name":  "Jo",
			"token": "abc",
			"auth":  map[string]any{"client_secret": "s3cr3t"},
		},
		"attempts": []any{
			map[string]any{"apiKey": "k1", "status": 401},
			"plain",
		},
	}

	out := RedactMap(in)

	user := out["user"].(map[string]any)
	assert.Equal(t, "Jo", user["name"])
	assert.Equal(t, Redacted, user["token"])
	assert.Equal(t, Redacted, user["auth"].(map[string]any)["client_secret"])
	attempts := out["attempts"].([]any)
	assert.Equal(t, Redacted, attempts[0].(map[string]any)["apiKey"])
	assert.Equal(t, 401, attempts[0].(map[string]any)["status"])
	assert.Equal(t, "plain", attempts[1])

	assert.Equal(t, "abc", in["user"].(map[string]any)["token"], "input must not be modified")
	assert.Equal(t, "k1", in["attempts"].([]any)[0].(map[string]any)["apiKey"])
}

func TestRedactMapNil(t *testing.T) {
	assert.Nil(t, RedactMap(nil))
}

func TestAnonymizeIP(t *testing.T) {
	assert.Equal(t, "203.0.113.0", AnonymizeIP("203.0.113.42"))
	assert.Equal(t, "2001:db8:abcd::", AnonymizeIP("2001:db8:abcd:12::1"))
	assert.Equal(t, "invalid", AnonymizeIP("not-an-ip"))
	assert.Equal(t, "", AnonymizeIP(""))
}
