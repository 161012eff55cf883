package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerIssueAndValidate(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("secret"), TTL: time.Hour})

	token, expires, err := m.Issue(Staff{ID: "42", DisplayName: "mod", Role: "staff", ServerIDs: []string{"srv"}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "staff", claims.Role)
	assert.True(t, claims.CanManage("srv"))
	assert.False(t, claims.CanManage("other"))
}

func TestManagerRejectsForeignAndExpiredTokens(t *testing.T) {
	m := NewManager(TokenConfig{Secret: []byte("secret"), TTL: time.Minute})
	other := NewManager(TokenConfig{Secret: []byte("different")})

	token, _, err := other.Issue(Staff{ID: "1", Role: "admin"})
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, _, err = m.Issue(Staff{ID: "1", Role: "admin"})
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = m.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaimsWithoutServersCoverAll(t *testing.T) {
	c := &Claims{Role: "admin"}
	assert.True(t, c.CanManage("anything"))
}
