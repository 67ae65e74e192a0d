package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	auth := NewAuth(store, "test-secret", time.Hour)

	u, err := auth.Signup(ctx, SignupInput{Username: "leo", Password: "correct horse", DisplayName: "Leo"})
	require.NoError(t, err)
	assert.Empty(t, u.Password)

	stored, err := store.GetUserByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", stored.Password)

	got, err := auth.Login(ctx, "leo", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = auth.Login(ctx, "leo", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Signup(ctx, SignupInput{Username: "leo", Password: "another pass"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSignupValidation(t *testing.T) {
	auth := NewAuth(newStore(t), "test-secret", time.Hour)
	cases := map[string]SignupInput{
		"username": {Username: " ", Password: "long enough"},
		"password": {Username: "leo", Password: "short"},
	}
	for field, in := range cases {
		_, err := auth.Signup(context.Background(), in)
		ve, ok := IsValidation(err)
		require.True(t, ok, field)
		assert.Equal(t, field, ve.Field)
	}
	_, err := auth.Signup(context.Background(), SignupInput{Username: "bad name!", Password: "long enough"})
	_, ok := IsValidation(err)
	assert.True(t, ok)
}

func TestSessionToken(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	auth := NewAuth(store, "test-secret", time.Hour)
	u, err := auth.Signup(ctx, SignupInput{Username: "leo", Password: "correct horse"})
	require.NoError(t, err)

	token, err := auth.IssueToken(u)
	require.NoError(t, err)
	got, err := auth.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "leo", got.Username)
	assert.Empty(t, got.Password)

	other := NewAuth(store, "other-secret", time.Hour)
	_, err = other.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Authenticate(ctx, token[:strings.LastIndex(token, ".")]+".tampered")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	expired := NewAuth(store, "test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.IssueToken(u)
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, old)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, store.DeleteUser(ctx, u.ID))
	_, err = auth.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
