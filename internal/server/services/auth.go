package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/metrics"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/repositories/repomanager"
)

type RegisterRequest struct {
	UserName string `json:"username" validate:"required,min=3,max=255,printascii"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Email    string `json:"email" validate:"required,email,max=255"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

var errPasswordTooLong = fmt.Errorf("%w: password must be at most %d bytes", common.ErrInvalidArgument, auth.MaxPasswordBytes)

// AuthService is the authentication gate. It verifies credentials, binds a
// machine on first use and issues identity tokens.
type AuthService struct {
	db               *sql.DB
	repomanager      repomanager.RepositoryManager
	hasher           PasswordHasher
	clock            Clock
	logger           logging.Logger
	metrics          *metrics.Metrics
	jwtSecret        []byte
	identityValidity time.Duration
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher PasswordHasher, clock Clock,
	cfg *config.Config, logger logging.Logger, mx *metrics.Metrics) *AuthService {
	return &AuthService{
		db:               db,
		repomanager:      m,
		hasher:           hasher,
		clock:            clock,
		logger:           logger.With("module", "auth"),
		metrics:          mx,
		jwtSecret:        []byte(cfg.SecretKey),
		identityValidity: cfg.IdentityTokenValidityDuration,
	}
}

// Register creates an account without an entitlement or bound machine.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (sess *Session, err error) {
	defer func() { s.metrics.AuthAttempt("register", err) }()

	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if auth.IsTooLong(req.Password) {
		return nil, errPasswordTooLong
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	user, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		UserName:     req.UserName,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	s.logger.Info(ctx, "user registered", "uid", user.ID, "username", user.UserName)
	return s.newSession(user, false)
}

// Login checks credentials only; the machine binding is left alone and the
// token it issues does not report entitlement.
func (s *AuthService) Login(ctx context.Context, userName, password string) (sess *Session, err error) {
	defer func() { s.metrics.AuthAttempt("login", err) }()

	user, err := s.verifyCredentials(ctx, userName, password)
	if err != nil {
		return nil, err
	}
	return s.newSession(user, false)
}

// Authenticate checks credentials and the machine. The first successful call
// binds hwid to the account; later calls from another machine fail with
// common.ErrHardwareMismatch.
func (s *AuthService) Authenticate(ctx context.Context, userName, password, hwid string) (sess *Session, err error) {
	defer func() { s.metrics.AuthAttempt("authenticate", err) }()

	hwid = strings.TrimSpace(hwid)
	if hwid == "" {
		return nil, fmt.Errorf("%w: hwid is required", common.ErrInvalidArgument)
	}

	user, err := s.verifyCredentials(ctx, userName, password)
	if err != nil {
		return nil, err
	}

	if !user.HardwareBound() {
		repo := s.repomanager.Users(s.db)
		bound, err := repo.BindHardware(ctx, user.ID, hwid)
		if err != nil {
			return nil, storeErr(err)
		}
		if bound {
			s.logger.Info(ctx, "hardware bound", "uid", user.ID)
			user.HWID = &hwid
		} else {
			// lost a race with a concurrent first login; trust what was stored
			user, err = repo.GetUserByID(ctx, user.ID)
			if err != nil {
				return nil, storeErr(notFoundAs(err, common.ErrInvalidCredentials))
			}
		}
	}

	if user.HWID == nil || *user.HWID != hwid {
		s.logger.Warn(ctx, "hardware mismatch", "uid", user.ID)
		return nil, common.ErrHardwareMismatch
	}

	return s.newSession(user, true)
}

// AuthenticateByIdentity resolves the account an identity token was issued
// to. No password or machine checks are made; a token whose uid now belongs
// to a different account fails with common.ErrInvalidToken.
func (s *AuthService) AuthenticateByIdentity(ctx context.Context, sub *auth.Subject) (*Identity, error) {
	user, err := s.resolveSubject(ctx, sub)
	if err != nil {
		return nil, err
	}
	return newIdentity(user, s.clock.Now()), nil
}

// VerifyIdentityToken checks the signature of a token this service issued
// and that its account still exists unchanged.
func (s *AuthService) VerifyIdentityToken(ctx context.Context, token string) (*auth.Subject, error) {
	if token == "" {
		return nil, common.ErrUnauthorized
	}
	sub, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if _, err := s.resolveSubject(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *AuthService) resolveSubject(ctx context.Context, sub *auth.Subject) (*models.User, error) {
	if sub == nil {
		return nil, common.ErrUnauthorized
	}
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, sub.UserID)
	if err != nil {
		return nil, storeErr(notFoundAs(err, common.ErrUserNotFound))
	}
	if user.UserName != sub.UserName || user.CreatedAt.UnixMicro() != sub.Since {
		s.logger.Warn(ctx, "identity token refers to a replaced account", "uid", sub.UserID)
		return nil, common.ErrInvalidToken
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) (err error) {
	defer func() { s.metrics.AuthAttempt("change_password", err) }()

	if err := validateStruct(changePasswordRequest{NewPassword: newPassword}); err != nil {
		return err
	}
	if auth.IsTooLong(newPassword) {
		return errPasswordTooLong
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByID(ctx, userID)
	if err != nil {
		return storeErr(notFoundAs(err, common.ErrUserNotFound))
	}
	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return common.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}
	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return storeErr(notFoundAs(err, common.ErrUserNotFound))
	}

	s.logger.Info(ctx, "password changed", "uid", userID)
	return nil
}

// verifyCredentials never reveals whether the username exists: unknown users
// pay for a dummy hash check and get the same error as a wrong password.
func (s *AuthService) verifyCredentials(ctx context.Context, userName, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, storeErr(err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

// newSession issues an identity token. Only tokens from a full
// authentication are marked hardware verified.
func (s *AuthService) newSession(user *models.User, hardwareVerified bool) (*Session, error) {
	token, err := auth.GenerateToken(auth.Subject{
		UserID:           user.ID,
		UserName:         user.UserName,
		Since:            user.CreatedAt.UnixMicro(),
		HardwareVerified: hardwareVerified,
	}, s.jwtSecret, s.identityValidity)
	if err != nil {
		return nil, fmt.Errorf("issue identity token: %w", err)
	}
	return &Session{Identity: newIdentity(user, s.clock.Now()), Token: token}, nil
}
