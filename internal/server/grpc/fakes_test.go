package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/entitlement"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/services"
)

var errBoom = errors.New("boom")

const testSecret = "test-secret"

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type fakeAuth struct {
	session *services.Session
	err     error

	identity    *services.Identity
	identityErr error

	passwdErr error
	verifyErr error

	gotHWID   string
	gotUserID int64
	gotReg    services.RegisterRequest
}

func (f *fakeAuth) Register(ctx context.Context, req services.RegisterRequest) (*services.Session, error) {
	f.gotReg = req
	return f.session, f.err
}
func (f *fakeAuth) Login(ctx context.Context, userName, password string) (*services.Session, error) {
	return f.session, f.err
}
func (f *fakeAuth) Authenticate(ctx context.Context, userName, password, hwid string) (*services.Session, error) {
	f.gotHWID = hwid
	return f.session, f.err
}
func (f *fakeAuth) AuthenticateByIdentity(ctx context.Context, sub *auth.Subject) (*services.Identity, error) {
	f.gotUserID = sub.UserID
	return f.identity, f.identityErr
}
func (f *fakeAuth) VerifyIdentityToken(ctx context.Context, token string) (*auth.Subject, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return auth.ParseToken(token, []byte(testSecret))
}
func (f *fakeAuth) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	f.gotUserID = userID
	return f.passwdErr
}

type fakeEntitlements struct {
	redemption *services.Redemption
	err        error
	gotUserID  int64
	gotCode    string
}

func (f *fakeEntitlements) RedeemKey(ctx context.Context, userID int64, code string) (*services.Redemption, error) {
	f.gotUserID, f.gotCode = userID, code
	return f.redemption, f.err
}

type fakeAdmin struct {
	key      *models.ActivationKey
	keys     []*models.ActivationKey
	users    []*services.Identity
	wipe     *services.WipeResult
	err      error
	gotUID   int64
	gotWipe  string
	gotIssue services.IssueKeyRequest
}

func (f *fakeAdmin) IssueKey(ctx context.Context, req services.IssueKeyRequest) (*models.ActivationKey, error) {
	f.gotIssue = req
	return f.key, f.err
}
func (f *fakeAdmin) ListKeys(ctx context.Context) ([]*models.ActivationKey, error) {
	return f.keys, f.err
}
func (f *fakeAdmin) ListUsers(ctx context.Context) ([]*services.Identity, error) {
	return f.users, f.err
}
func (f *fakeAdmin) ResetHardware(ctx context.Context, userID int64) error {
	f.gotUID = userID
	return f.err
}
func (f *fakeAdmin) DeleteUser(ctx context.Context, userID int64) error {
	f.gotUID = userID
	return f.err
}
func (f *fakeAdmin) WipeAll(ctx context.Context, secret string) (*services.WipeResult, error) {
	f.gotWipe = secret
	return f.wipe, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.EndpointAddrGRPC = "127.0.0.1:0"
	cfg.AdminToken = "admin-token"
	cfg.SecretKey = testSecret
	cfg.AuthRateLimit = 0
	return cfg
}

func newServer(a *fakeAuth, e *fakeEntitlements, ad *fakeAdmin) *GRPCServer {
	return NewGRPCServer(testConfig(), nopLogger{}, nil, a, e, ad)
}

func testIdentity() *services.Identity {
	exp := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	hwid := "hw-1"
	return &services.Identity{
		UserID:    7,
		UserName:  "alice",
		Email:     "alice@example.com",
		HWID:      &hwid,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Status: entitlement.Status{
			Active:    true,
			Type:      models.SubscriptionMonthly,
			ExpiresAt: &exp,
		},
	}
}

func withUser(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, subjectKey, &auth.Subject{UserID: id, UserName: "alice", HardwareVerified: true})
}

func testToken(id int64, hardwareVerified bool) (string, error) {
	return auth.GenerateToken(auth.Subject{UserID: id, UserName: "alice", HardwareVerified: hardwareVerified},
		[]byte(testSecret), time.Hour)
}
