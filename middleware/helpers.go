package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
)

var errNoClaims = errors.New("token claims not found in context")

// Имена JWT claims
const (
	jwtClaimSubject = "sub"
	jwtClaimRole    = "role"
)

func stringClaim(ctx context.Context, name string) (string, error) {
	claims, ok := ctx.Value(claimsContextKey).(jwt.MapClaims)
	if !ok {
		return "", errNoClaims
	}

	value, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", name)
	}

	str, ok := value.(string)
	if !ok || str == "" {
		return "", fmt.Errorf("invalid type for '%s' claim: expected string, got %T", name, value)
	}
	return str, nil
}

// GetSubjectFromContext возвращает логин организатора из токена.
func GetSubjectFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, jwtClaimSubject)
}

func GetRoleFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, jwtClaimRole)
}
