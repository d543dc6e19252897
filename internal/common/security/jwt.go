package security

import (
	"errors"
	"fmt"
	"time"
	"todo_app/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload carried by access tokens. UserID is a pointer so a
// token minted without an "id" claim can be told apart from user 0.
type Claims struct {
	UserID *int64 `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokenService builds an HS256 token service. The key must be the
// per-deployment secret loaded at startup.
func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) == 0 {
		return nil, errors.New("jwt signing key must not be empty")
	}
	return &TokenService{key: key, ttl: ttl, now: time.Now}, nil
}

// DefaultTTL is the lifetime used by Login.
func (s *TokenService) DefaultTTL() time.Duration {
	return s.ttl
}

func (s *TokenService) Issue(username string, userID int64, role string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: &userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the claims. Expired tokens
// yield common.ErrTokenExpired, everything else common.ErrInvalidToken.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	if claims.Subject == "" || claims.UserID == nil {
		return nil, fmt.Errorf("%w: missing sub or id claim", common.ErrInvalidToken)
	}
	return claims, nil
}
