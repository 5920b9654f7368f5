package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	in := TokenClaims{UserID: uuid.New(), Role: "admin", SessionID: uuid.New()}

	raw, err := GenerateToken("secret", in, time.Minute)
	require.NoError(t, err)

	out, err := ParseToken("secret", raw)
	require.NoError(t, err)
	require.Equal(t, in, *out)

	_, err = ParseToken("other-secret", raw)
	require.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	raw, err := GenerateToken("secret", TokenClaims{UserID: uuid.New(), Role: "user"}, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken("secret", raw)
	require.Error(t, err)
}

func TestRandomTokenAlphabet(t *testing.T) {
	code, err := RandomToken(32)
	require.NoError(t, err)
	require.Len(t, code, 32)
	for _, c := range code {
		require.Contains(t, referralAlphabet, string(c))
	}
}
