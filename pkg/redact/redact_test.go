package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in, want string
	}{
		{"alice@example.com", "al***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"broken", "***"},
		{"a@b@c", "***"},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.want, Email(tc.in), tc.in)
	}
}

func TestToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, "[EMPTY]", Token(""))
	require.Equal(t, "[REDACTED_TOKEN]", Token("eyJhbGciOi..."))
	require.NotContains(t, Token("secret-value"), "secret")
}
