package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Login(t *testing.T) {
	secret := []byte("test-secret")
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	auth := NewAuthService("admin", string(hash), secret, time.Hour)

	tests := []struct {
		name    string
		input   LoginInput
		wantErr bool
	}{
		{name: "valid", input: LoginInput{Login: "admin", Password: "s3cret"}},
		{name: "wrong password", input: LoginInput{Login: "admin", Password: "nope"}, wantErr: true},
		{name: "wrong login", input: LoginInput{Login: "root", Password: "s3cret"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := auth.Login(context.Background(), tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrAuthInvalidCredentials)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Bearer", resp.TokenType)

			parsed, err := jwt.Parse(resp.AccessToken, func(token *jwt.Token) (interface{}, error) { return secret, nil })
			require.NoError(t, err)
			claims := parsed.Claims.(jwt.MapClaims)
			assert.Equal(t, RoleOrganizer, claims[ClaimRole])
			assert.Equal(t, "admin", claims[ClaimSubject])
		})
	}
}

func TestAuthService_DisabledWithoutCredentials(t *testing.T) {
	auth := NewAuthService("", "", []byte("x"), time.Hour)
	_, err := auth.Login(context.Background(), LoginInput{})
	require.ErrorIs(t, err, ErrAuthInvalidCredentials)
}
