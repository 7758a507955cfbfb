package service

import (
	"testing"
	"time"

	"filtro/internal/core/domain"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAuthConfig(users map[string]string) {
	viper.Reset()
	viper.Set("auth.jwt_secret", "test-secret")
	viper.Set("auth.users", users)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		wantErr bool
	}{
		{
			name: "loads users and secret",
			setup: func() {
				setAuthConfig(map[string]string{"user1": "password1"})
			},
			wantErr: false,
		},
		{
			name: "missing secret returns error",
			setup: func() {
				viper.Reset()
				viper.Set("auth.users", map[string]string{"user1": "password1"})
			},
			wantErr: true,
		},
		{
			name: "empty user map is fine",
			setup: func() {
				setAuthConfig(map[string]string{})
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			auth, err := NewTokenService()

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, auth)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, auth)
			}
		})
	}
}

func TestLoginAndVerifyRoundtrip(t *testing.T) {
	setAuthConfig(map[string]string{"user1": "password1"})
	auth, err := NewTokenService()
	require.NoError(t, err)

	token, err := auth.Login("user1", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user1", username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	setAuthConfig(map[string]string{"user1": "password1"})
	auth, err := NewTokenService()
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "user1", password: "nope"},
		{name: "unknown user", username: "ghost", password: "password1"},
		{name: "empty password", username: "user1", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.Login(tt.username, tt.password)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
			assert.Empty(t, token)
		})
	}
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	setAuthConfig(map[string]string{"user1": "password1"})
	auth, err := NewTokenService()
	require.NoError(t, err)

	_, err = auth.Verify("not.a.token")
	assert.Error(t, err)
}

func TestVerifyRejectsTokenSignedWithOtherSecret(t *testing.T) {
	setAuthConfig(map[string]string{"user1": "password1"})
	other, err := NewTokenService()
	require.NoError(t, err)

	token, err := other.Login("user1", "password1")
	require.NoError(t, err)

	viper.Set("auth.jwt_secret", "different-secret")
	auth, err := NewTokenService()
	require.NoError(t, err)

	_, err = auth.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	setAuthConfig(map[string]string{"user1": "password1"})
	viper.Set("auth.token_ttl", -time.Hour)
	auth, err := NewTokenService()
	require.NoError(t, err)

	token, err := auth.Login("user1", "password1")
	require.NoError(t, err)

	_, err = auth.Verify(token)
	assert.Error(t, err)
}
