package users

import (
	"context"

	"github.com/dmitrijs2005/keygate/internal/server/models"
)

// Repository is the credential store. Lookups return common.ErrorNotFound
// when no row matches; Create returns common.ErrConflict on a taken username.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetUserByIDForUpdate locks the row until the surrounding transaction ends.
	GetUserByIDForUpdate(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)

	// BindHardware sets hwid only if none is bound yet and reports whether
	// this call did the binding.
	BindHardware(ctx context.Context, id int64, hwid string) (bool, error)
	UpdateHardware(ctx context.Context, id int64, hwid *string) error
	UpdateEntitlement(ctx context.Context, id int64, e models.Entitlement) error
	UpdatePassword(ctx context.Context, id int64, hash []byte) error

	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	ResetIdentityCounter(ctx context.Context) error
}
