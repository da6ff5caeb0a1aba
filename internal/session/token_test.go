package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestDecodeExpiry_OK(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := DecodeExpiry(makeToken(t, exp))

	require.NoError(t, err)
	require.True(t, exp.Equal(got))
}

func TestDecodeExpiry_IgnoresSignature(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := makeToken(t, exp)

	// Портим подпись: клиент проверяет только формат.
	tampered := tok[:len(tok)-2] + "xx"

	got, err := DecodeExpiry(tampered)
	require.NoError(t, err)
	require.True(t, exp.Equal(got))
}

func TestDecodeExpiry_Malformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "not-a-jwt", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.e30"} {
		_, err := DecodeExpiry(in)
		require.ErrorIs(t, err, ErrMalformedToken, in)
	}
}

func TestDecodeExpiry_MissingExp(t *testing.T) {
	t.Parallel()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).
		SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = DecodeExpiry(tok)
	require.ErrorIs(t, err, ErrMalformedToken)
}
