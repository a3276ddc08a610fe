package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/dbx"
	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/archive"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/metrics"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/repositories/repomanager"
)

// MaxIssueAttempts bounds code regeneration when a fresh code collides with
// an existing one.
const MaxIssueAttempts = 5

// Key codes look like PREFIX-XXXXXXXX-XXXXXXXX.
const (
	keyGroupLen   = 8
	keyGroupCount = 2
)

type IssueKeyRequest struct {
	SubscriptionType string `json:"subscription_type" validate:"required,plan"`
	DurationDays     int    `json:"duration_days" validate:"gte=0,lte=36500"`
}

// Archiver stores a snapshot somewhere durable and returns its location.
type Archiver interface {
	Archive(ctx context.Context, snap *archive.Snapshot) (string, error)
}

type WipeResult struct {
	UsersDeleted int64
	KeysDeleted  int64
	ArchiveKey   string
}

// AdminService implements admin control. Callers are expected to have
// checked the admin token already; WipeAll checks its own secret.
type AdminService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       Clock
	logger      logging.Logger
	metrics     *metrics.Metrics
	archiver    Archiver
	wipeSecret  []byte
	generate    func() (string, error)
}

// NewAdminService wires the service. archiver may be nil, in which case
// wipes are not archived.
func NewAdminService(db *sql.DB, m repomanager.RepositoryManager, clock Clock, cfg *config.Config,
	archiver Archiver, logger logging.Logger, mx *metrics.Metrics) *AdminService {
	prefix := cfg.KeyPrefix
	return &AdminService{
		db:          db,
		repomanager: m,
		clock:       clock,
		logger:      logger.With("module", "admin"),
		metrics:     mx,
		archiver:    archiver,
		wipeSecret:  []byte(cfg.WipeSecret),
		generate:    func() (string, error) { return GenerateKeyCode(prefix) },
	}
}

// GenerateKeyCode returns a fresh random code with the given prefix.
func GenerateKeyCode(prefix string) (string, error) {
	code := prefix
	for i := 0; i < keyGroupCount; i++ {
		group, err := common.RandomString(common.KeyAlphabet, keyGroupLen)
		if err != nil {
			return "", fmt.Errorf("generate key code: %w", err)
		}
		if code == "" {
			code = group
		} else {
			code += "-" + group
		}
	}
	return NormalizeKeyCode(code), nil
}

// IssueKey creates an unused key. Lifetime and hwid_reset keys always carry
// zero days.
func (s *AdminService) IssueKey(ctx context.Context, req IssueKeyRequest) (key *models.ActivationKey, err error) {
	defer func() { s.metrics.AdminOperation("issue_key", err) }()

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	subType, err := models.ParseSubscriptionType(req.SubscriptionType)
	if err != nil {
		return nil, err
	}
	days := req.DurationDays
	if subType.Kind() != models.KindMetered {
		days = 0
	}

	repo := s.repomanager.Keys(s.db)
	for attempt := 1; attempt <= MaxIssueAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, err
		}

		key, err = repo.Create(ctx, &models.ActivationKey{
			Code:             code,
			SubscriptionType: subType,
			DurationDays:     days,
		})
		if err == nil {
			s.metrics.KeyIssued(string(subType))
			s.logger.Info(ctx, "key issued", "id", key.ID, "type", subType, "days", days)
			return key, nil
		}
		if !errors.Is(err, common.ErrConflict) {
			return nil, storeErr(err)
		}
		s.logger.Warn(ctx, "key code collision, regenerating", "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: no free key code after %d attempts", common.ErrConflict, MaxIssueAttempts)
}

func (s *AdminService) ListKeys(ctx context.Context) ([]*models.ActivationKey, error) {
	keys, err := s.repomanager.Keys(s.db).List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}
	return keys, nil
}

func (s *AdminService) ListUsers(ctx context.Context) ([]*Identity, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	now := s.clock.Now()
	result := make([]*Identity, 0, len(users))
	for _, u := range users {
		result = append(result, newIdentity(u, now))
	}
	return result, nil
}

// ResetHardware unbinds the user's machine unconditionally.
func (s *AdminService) ResetHardware(ctx context.Context, userID int64) (err error) {
	defer func() { s.metrics.AdminOperation("reset_hardware", err) }()

	if err := s.repomanager.Users(s.db).UpdateHardware(ctx, userID, nil); err != nil {
		return storeErr(notFoundAs(err, common.ErrUserNotFound))
	}
	s.logger.Info(ctx, "hardware reset", "uid", userID)
	return nil
}

// DeleteUser removes the account. Keys it redeemed keep pointing at the id.
func (s *AdminService) DeleteUser(ctx context.Context, userID int64) (err error) {
	defer func() { s.metrics.AdminOperation("delete_user", err) }()

	if err := s.repomanager.Users(s.db).Delete(ctx, userID); err != nil {
		return storeErr(notFoundAs(err, common.ErrUserNotFound))
	}
	s.logger.Info(ctx, "user deleted", "uid", userID)
	return nil
}

// WipeAll empties both stores and restarts both id counters at 1, all in
// one transaction. A wrong or unconfigured secret fails with
// common.ErrForbidden before anything is read.
func (s *AdminService) WipeAll(ctx context.Context, secret string) (res *WipeResult, err error) {
	defer func() { s.metrics.AdminOperation("wipe_all", err) }()

	if len(s.wipeSecret) == 0 || subtle.ConstantTimeCompare(s.wipeSecret, []byte(secret)) != 1 {
		s.logger.Warn(ctx, "wipe rejected")
		return nil, common.ErrForbidden
	}

	res = &WipeResult{}
	err = dbx.WithTx(ctx, s.db, dbx.Serializable, func(ctx context.Context, tx dbx.DBTX) error {
		usersRepo := s.repomanager.Users(tx)
		keysRepo := s.repomanager.Keys(tx)

		if s.archiver != nil {
			users, err := usersRepo.List(ctx)
			if err != nil {
				return err
			}
			keys, err := keysRepo.List(ctx)
			if err != nil {
				return err
			}
			location, err := s.archiver.Archive(ctx, archive.NewSnapshot(s.clock.Now(), users, keys))
			if err != nil {
				return fmt.Errorf("%w: archive: %v", common.ErrStoreUnavailable, err)
			}
			res.ArchiveKey = location
		}

		var err error
		if res.KeysDeleted, err = keysRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if res.UsersDeleted, err = usersRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := usersRepo.ResetIdentityCounter(ctx); err != nil {
			return err
		}
		return keysRepo.ResetIdentityCounter(ctx)
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.logger.Warn(ctx, "all data wiped", "users", res.UsersDeleted, "keys", res.KeysDeleted, "archive", res.ArchiveKey)
	return res, nil
}
