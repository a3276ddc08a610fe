package keys

import (
	"context"
	"time"

	"github.com/dmitrijs2005/keygate/internal/server/models"
)

// Repository is the activation key store. GetKeyByCodeForUpdate returns
// common.ErrorNotFound when no row matches; Create returns common.ErrConflict
// when the code is already taken.
type Repository interface {
	Create(ctx context.Context, key *models.ActivationKey) (*models.ActivationKey, error)
	// GetKeyByCodeForUpdate locks the row until the surrounding transaction ends.
	GetKeyByCodeForUpdate(ctx context.Context, code string) (*models.ActivationKey, error)
	List(ctx context.Context) ([]*models.ActivationKey, error)

	// MarkUsed flips an unused key to used. It returns common.ErrKeyAlreadyUsed
	// when the key was redeemed in the meantime.
	MarkUsed(ctx context.Context, id int64, userID int64, at time.Time) error

	DeleteAll(ctx context.Context) (int64, error)
	ResetIdentityCounter(ctx context.Context) error
}
