package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/entitlement"
	"github.com/dmitrijs2005/keygate/internal/server/metrics"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/repositories/repomanager"
)

// Redemption describes what a redeemed key did.
type Redemption struct {
	KeyType       models.SubscriptionType
	HardwareReset bool
	Status        entitlement.Status
}

// EntitlementService redeems activation keys against user entitlements.
type EntitlementService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	engine      *entitlement.Engine
	clock       Clock
	logger      logging.Logger
	metrics     *metrics.Metrics
}

func NewEntitlementService(db *sql.DB, m repomanager.RepositoryManager, engine *entitlement.Engine, clock Clock,
	logger logging.Logger, mx *metrics.Metrics) *EntitlementService {
	return &EntitlementService{
		db:          db,
		repomanager: m,
		engine:      engine,
		clock:       clock,
		logger:      logger.With("module", "entitlement"),
		metrics:     mx,
	}
}

// NormalizeKeyCode canonicalises user-typed codes.
func NormalizeKeyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RedeemKey applies the key identified by code to the user. The key row and
// the user row are locked in a serializable transaction, so a code can be
// spent only once and the entitlement update lands together with it.
func (s *EntitlementService) RedeemKey(ctx context.Context, userID int64, code string) (*Redemption, error) {
	code = NormalizeKeyCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: key code is required", common.ErrInvalidArgument)
	}

	now := s.clock.Now()
	var result *Redemption

	err := dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		keysRepo := s.repomanager.Keys(tx)
		usersRepo := s.repomanager.Users(tx)

		key, err := keysRepo.GetKeyByCodeForUpdate(ctx, code)
		if err != nil {
			return notFoundAs(err, common.ErrKeyNotFound)
		}
		if key.Used {
			return common.ErrKeyAlreadyUsed
		}

		user, err := usersRepo.GetUserByIDForUpdate(ctx, userID)
		if err != nil {
			return notFoundAs(err, common.ErrUserNotFound)
		}

		grant, err := s.engine.Redeem(user.Entitlement, key, now)
		if err != nil {
			return err
		}

		if grant.ResetHardware {
			if err := usersRepo.UpdateHardware(ctx, userID, nil); err != nil {
				return notFoundAs(err, common.ErrUserNotFound)
			}
		} else {
			if err := usersRepo.UpdateEntitlement(ctx, userID, grant.Entitlement); err != nil {
				return notFoundAs(err, common.ErrUserNotFound)
			}
		}

		if err := keysRepo.MarkUsed(ctx, key.ID, userID, now); err != nil {
			return err
		}

		result = &Redemption{
			KeyType:       key.SubscriptionType,
			HardwareReset: grant.ResetHardware,
			Status:        entitlement.ComputeStatus(grant.Entitlement, now),
		}
		return nil
	})

	keyType := ""
	if result != nil {
		keyType = string(result.KeyType)
	}
	s.metrics.Redemption(keyType, err)

	if err != nil {
		s.logger.Warn(ctx, "key redemption failed", "uid", userID, "error", err)
		return nil, storeErr(err)
	}

	s.logger.Info(ctx, "key redeemed", "uid", userID, "type", keyType, "hwid_reset", result.HardwareReset)
	return result, nil
}
