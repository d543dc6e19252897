package security

import (
	"fmt"
	"todo_app/internal/common"
)

// Identity is who is making the request. It is only ever built from
// claims that passed verification.
type Identity struct {
	Username string `json:"username"`
	UserID   int64  `json:"user_id"`
	Role     string `json:"role"`
}

type TokenVerifier interface {
	Verify(tokenString string) (*Claims, error)
}

type IdentityResolver struct {
	verifier TokenVerifier
}

func NewIdentityResolver(v TokenVerifier) *IdentityResolver {
	return &IdentityResolver{verifier: v}
}

// ResolveIdentity turns a raw bearer token into an Identity. Every failure,
// including an empty token, is reported as common.ErrUnauthorized.
func (r *IdentityResolver) ResolveIdentity(rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("%w: authorization token required", common.ErrUnauthorized)
	}
	claims, err := r.verifier.Verify(rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: could not validate credentials: %v", common.ErrUnauthorized, err)
	}
	return &Identity{
		Username: claims.Subject,
		UserID:   *claims.UserID,
		Role:     claims.Role,
	}, nil
}

// RequireOwner allows access only to the owner. A mismatch is reported as
// not found so non-owners cannot probe for existence.
func RequireOwner(id *Identity, ownerID int64) error {
	if id == nil || id.UserID != ownerID {
		return common.ErrNotFound
	}
	return nil
}

func RequireRole(id *Identity, role string) error {
	if id == nil || id.Role != role {
		return fmt.Errorf("%w: %s role required", common.ErrUnauthorized, role)
	}
	return nil
}
