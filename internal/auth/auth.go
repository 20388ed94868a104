package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/perejack/globalvisaapplication/internal"
)

const DefaultAudience = "authenticated"

// Claims are the fields this service reads from an identity-provider access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) User() *apperrors.User {
	return &apperrors.User{
		ID:    c.Subject,
		Email: c.Email,
		Role:  c.Role,
	}
}

// TokenVerifier checks HS256 access tokens signed with the identity provider's shared secret.
type TokenVerifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
}

func NewTokenVerifier(secret, audience string) *TokenVerifier {
	return &TokenVerifier{
		secret:   []byte(secret),
		audience: audience,
		leeway:   30 * time.Second,
	}
}

func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.NewUnauthorizedError("Invalid token", apperrors.ErrCodeInvalidToken).WithCause(err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}

// IssueToken signs a token the verifier accepts, for local development and tests.
// Real tokens come from the identity provider.
func IssueToken(secret, audience, userID, email string, ttl time.Duration) (string, error) {
	return IssueTokenWithRole(secret, audience, userID, email, DefaultAudience, ttl)
}

func IssueTokenWithRole(secret, audience, userID, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
