package security

import (
	"context"

	"filedrop/internal/models"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok
}

// AccessLevel orders the three authorization states so guards can compare.
type AccessLevel int

const (
	Anonymous AccessLevel = iota
	AuthenticatedUser
	AuthenticatedAdmin
)

func (l AccessLevel) String() string {
	switch l {
	case AuthenticatedUser:
		return "user"
	case AuthenticatedAdmin:
		return "admin"
	default:
		return "anonymous"
	}
}

func LevelOf(ctx context.Context) AccessLevel {
	id, ok := IdentityFrom(ctx)
	switch {
	case !ok:
		return Anonymous
	case id.IsAdmin():
		return AuthenticatedAdmin
	default:
		return AuthenticatedUser
	}
}
