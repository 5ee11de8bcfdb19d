package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var ErrAuthInvalidCredentials = errors.New("invalid organizer credentials")

const (
	RoleOrganizer = "organizer"

	ClaimSubject = "sub"
	ClaimRole    = "role"
)

type LoginInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService выдает токены организатора. Учетная запись организатора одна
// и задается в конфигурации логином и bcrypt-хешем пароля.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*TokenResponse, error)
}

type authService struct {
	login        string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
}

func NewAuthService(login, passwordHash string, secret []byte, ttl time.Duration) AuthService {
	return &authService{
		login:        login,
		passwordHash: []byte(passwordHash),
		secret:       secret,
		ttl:          ttl,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*TokenResponse, error) {
	if s.login == "" || len(s.passwordHash) == 0 {
		return nil, ErrAuthInvalidCredentials
	}
	if input.Login != s.login {
		return nil, ErrAuthInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	expiresAt := now().Add(s.ttl)
	token, err := GenerateToken(s.secret, input.Login, RoleOrganizer, expiresAt)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

// GenerateToken подписывает HS256 токен с ролью.
func GenerateToken(secret []byte, subject, role string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		ClaimSubject: subject,
		ClaimRole:    role,
		"iat":        now().Unix(),
		"exp":        expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
