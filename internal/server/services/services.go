// Package services holds keygate's business logic: the authentication gate,
// key redemption and admin control. Services own transaction scope and
// translate repository errors into the common sentinel errors.
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/server/entitlement"
	"github.com/dmitrijs2005/keygate/internal/server/models"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(password string) ([]byte, error)
	Verify(hash []byte, password string) bool
	// VerifyDummy costs as much as Verify and always fails.
	VerifyDummy(password string)
}

// Identity is a user as seen by callers: no password material, plus the
// entitlement status derived at lookup time.
type Identity struct {
	UserID    int64
	UserName  string
	Email     string
	HWID      *string
	CreatedAt time.Time
	Status    entitlement.Status
}

func newIdentity(u *models.User, now time.Time) *Identity {
	return &Identity{
		UserID:    u.ID,
		UserName:  u.UserName,
		Email:     u.Email,
		HWID:      u.HWID,
		CreatedAt: u.CreatedAt,
		Status:    entitlement.ComputeStatus(u.Entitlement, now),
	}
}

// Session is an authenticated identity together with the token that lets
// the caller come back as that identity.
type Session struct {
	Identity *Identity
	Token    string
}

var domainErrors = []error{
	common.ErrInvalidCredentials,
	common.ErrHardwareMismatch,
	common.ErrUserNotFound,
	common.ErrKeyNotFound,
	common.ErrKeyAlreadyUsed,
	common.ErrForbidden,
	common.ErrConflict,
	common.ErrStoreUnavailable,
	common.ErrInvalidArgument,
	common.ErrUnauthorized,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
}

// storeErr passes domain errors through and turns everything else into
// common.ErrStoreUnavailable, keeping the cause in the message.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	if dbx.IsSerializationFailure(err) {
		return fmt.Errorf("%w: concurrent update, retry: %v", common.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
}

// notFoundAs maps the repository's ErrorNotFound onto a domain error.
func notFoundAs(err error, target error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return target
	}
	return err
}
