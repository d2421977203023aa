package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	a := NewJWTAuthenticator("secret", "ittr", "ittr")

	tok, err := a.GenerateToken("stu-1", RoleStudent, time.Hour)
	require.NoError(t, err)

	claims, err := a.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.Subject)
	assert.Equal(t, RoleStudent, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestJWTRejects(t *testing.T) {
	a := NewJWTAuthenticator("secret", "ittr", "ittr")

	expired, err := a.GenerateToken("stu-1", RoleStudent, -time.Minute)
	require.NoError(t, err)
	otherKey, err := NewJWTAuthenticator("other", "ittr", "ittr").GenerateToken("stu-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := NewJWTAuthenticator("secret", "ittr", "someone-else").GenerateToken("stu-1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	noSubject, err := a.GenerateToken("", RoleAdmin, time.Hour)
	require.NoError(t, err)

	tests := map[string]string{
		"expired":      expired,
		"wrong secret": otherKey,
		"wrong issuer": otherIssuer,
		"no subject":   noSubject,
		"garbage":      "not.a.token",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.ValidateToken(tok)
			assert.Error(t, err)
		})
	}
}
