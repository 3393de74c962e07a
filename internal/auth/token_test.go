package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"component-catalog-service/internal/domain"
)

func TestVerifier_RoleRoundTrip(t *testing.T) {
	v := NewVerifier("test-secret")

	for _, role := range []string{"free", "pro", "admin"} {
		token, err := v.Sign("user-1", role, time.Minute)
		require.NoError(t, err)

		assert.Equal(t, domain.ParseRole(role), v.RoleFor(token))
	}
}

func TestVerifier_MissingTokenIsAnonymous(t *testing.T) {
	v := NewVerifier("test-secret")

	assert.Equal(t, domain.RoleAnonymous, v.RoleFor(""))
}

func TestVerifier_GarbageTokenIsAnonymous(t *testing.T) {
	v := NewVerifier("test-secret")

	assert.Equal(t, domain.RoleAnonymous, v.RoleFor("not.a.token"))
}

func TestVerifier_WrongSecretIsAnonymous(t *testing.T) {
	other := NewVerifier("other-secret")
	token, err := other.Sign("user-1", "admin", time.Minute)
	require.NoError(t, err)

	v := NewVerifier("test-secret")
	assert.Equal(t, domain.RoleAnonymous, v.RoleFor(token))

	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifier_ExpiredTokenIsAnonymous(t *testing.T) {
	v := NewVerifier("test-secret")
	issued := time.Now().Add(-time.Hour)
	v.now = func() time.Time { return issued }

	token, err := v.Sign("user-1", "pro", time.Minute)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Equal(t, domain.RoleAnonymous, v.RoleFor(token))
}

func TestVerifier_UnknownRoleClaimIsAnonymous(t *testing.T) {
	v := NewVerifier("test-secret")

	token, err := v.Sign("user-1", "superuser", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAnonymous, v.RoleFor(token))
}
