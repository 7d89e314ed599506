package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/petpair-backend/internal/listings"
	"github.com/angelmondragon/petpair-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/petpair-backend/pkg/errors"
)

type userFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// IdentityResolver answers listing actor lookups straight from the users
// table. It lets the listings service be built before the users service.
type IdentityResolver struct {
	repo userFinder
}

// NewIdentityResolver wraps a users repository.
func NewIdentityResolver(repo userFinder) *IdentityResolver {
	return &IdentityResolver{repo: repo}
}

func (r *IdentityResolver) ResolveIdentity(ctx context.Context, id uuid.UUID) (listings.Identity, error) {
	return resolveIdentity(ctx, r.repo, id)
}

func resolveIdentity(ctx context.Context, repo userFinder, id uuid.UUID) (listings.Identity, error) {
	user, err := loadUser(ctx, repo, id)
	if err != nil {
		return listings.Identity{}, err
	}
	return listings.Identity{
		ID:          user.ID,
		DisplayName: user.Name,
		IsAdmin:     user.IsAdmin(),
		IsBlocked:   user.IsBlocked,
	}, nil
}

func loadUser(ctx context.Context, repo userFinder, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
