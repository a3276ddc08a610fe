package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/keygate/internal/client/cache"
	"github.com/dmitrijs2005/keygate/internal/client/client"
	"github.com/dmitrijs2005/keygate/internal/client/config"
	"github.com/dmitrijs2005/keygate/internal/rpc"
)

var errBoom = errors.New("boom")

type fakeClient struct {
	client.Client

	token string

	session    *rpc.SessionResponse
	sessionErr error
	checkArgs  []string

	identity    *rpc.UserInfo
	identityErr error
	identityTok string

	activate    *rpc.ActivateKeyResponse
	activateErr error
	activated   string

	passwords   []string
	passwordErr error

	key       *rpc.KeyInfo
	issueArgs []any
	keys      []rpc.KeyInfo
	users     []rpc.UserInfo
	adminErr  error
	resetUID  int64
	deleted   int64
	wipe      *rpc.WipeAllResponse
	secret    string
}

func (f *fakeClient) SetIdentityToken(token string) { f.token = token }

func (f *fakeClient) Register(_ context.Context, u, p, email string) (*rpc.SessionResponse, error) {
	f.checkArgs = []string{u, p, email}
	return f.session, f.sessionErr
}

func (f *fakeClient) CheckSubscription(_ context.Context, u, p, hw string) (*rpc.SessionResponse, error) {
	f.checkArgs = []string{u, p, hw}
	return f.session, f.sessionErr
}

func (f *fakeClient) CheckIdentity(context.Context) (*rpc.UserInfo, error) {
	f.identityTok = f.token
	return f.identity, f.identityErr
}

func (f *fakeClient) ActivateKey(_ context.Context, code string) (*rpc.ActivateKeyResponse, error) {
	f.activated = code
	return f.activate, f.activateErr
}

func (f *fakeClient) ChangePassword(_ context.Context, oldPassword, newPassword string) error {
	f.passwords = []string{oldPassword, newPassword}
	return f.passwordErr
}

func (f *fakeClient) IssueKey(_ context.Context, typ string, days int) (*rpc.KeyInfo, error) {
	f.issueArgs = []any{typ, days}
	return f.key, f.adminErr
}

func (f *fakeClient) ListKeys(context.Context) ([]rpc.KeyInfo, error) {
	return f.keys, f.adminErr
}

func (f *fakeClient) ListUsers(context.Context) ([]rpc.UserInfo, error) {
	return f.users, f.adminErr
}

func (f *fakeClient) ResetHardware(_ context.Context, uid int64) error {
	f.resetUID = uid
	return f.adminErr
}

func (f *fakeClient) DeleteUser(_ context.Context, uid int64) error {
	f.deleted = uid
	return f.adminErr
}

func (f *fakeClient) WipeAll(_ context.Context, secret string) (*rpc.WipeAllResponse, error) {
	f.secret = secret
	return f.wipe, f.adminErr
}

type fakeCache struct {
	sess    *cache.Session
	saveErr error
	cleared bool
}

func (c *fakeCache) SaveSession(_ context.Context, sess cache.Session) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	c.sess = &sess
	return nil
}

func (c *fakeCache) LoadSession(context.Context) (*cache.Session, error) {
	if c.sess == nil {
		return nil, cache.ErrNoSession
	}
	s := *c.sess
	return &s, nil
}

func (c *fakeCache) ClearSession(context.Context) error {
	c.sess = nil
	c.cleared = true
	return nil
}

func newTestApp(fc *fakeClient, cc *fakeCache, input string) (*App, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &App{
		config: &config.Config{HWID: "hw-override"},
		client: fc,
		cache:  cc,
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    out,
	}, out
}

// stubPasswords makes getPassword return the given answers in order.
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := getPassword
	t.Cleanup(func() { getPassword = old })

	i := 0
	getPassword = func(_ io.Writer, _ string) ([]byte, error) {
		if i >= len(answers) {
			return nil, errBoom
		}
		pw := []byte(answers[i])
		i++
		return pw, nil
	}
}

func stubHWID(t *testing.T, id string, err error) {
	t.Helper()
	old := resolveHWID
	t.Cleanup(func() { resolveHWID = old })
	resolveHWID = func(string) (string, error) { return id, err }
}
