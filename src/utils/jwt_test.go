package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondentToken(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		token, err := GenerateRespondentToken("u-42", "jane@example.edu", "Student")
		require.NoError(t, err)

		claims, err := ParseRespondentToken(token)
		require.NoError(t, err)
		assert.Equal(t, "u-42", claims.UserID)
		assert.Equal(t, "jane@example.edu", claims.Email)
		assert.Equal(t, "Student", claims.Role)
		assert.Equal(t, tokenIssuer, claims.Issuer)
	})

	t.Run("EmptyTokenRejected", func(t *testing.T) {
		_, err := ParseRespondentToken("")
		assert.Error(t, err)
	})

	t.Run("TamperedTokenRejected", func(t *testing.T) {
		token, err := GenerateRespondentToken("u-42", "jane@example.edu", "Student")
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		parts[2] = strings.Repeat("x", len(parts[2]))

		_, err = ParseRespondentToken(strings.Join(parts, "."))
		assert.Error(t, err)
	})
}
