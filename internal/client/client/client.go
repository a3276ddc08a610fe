package client

import (
	"context"

	"github.com/dmitrijs2005/keygate/internal/rpc"
)

type Client interface {
	Close() error
	SetIdentityToken(token string)
	Ping(ctx context.Context) error
	Register(ctx context.Context, username, password, email string) (*rpc.SessionResponse, error)
	Login(ctx context.Context, username, password string) (*rpc.SessionResponse, error)
	CheckSubscription(ctx context.Context, username, password, hwid string) (*rpc.SessionResponse, error)
	CheckIdentity(ctx context.Context) (*rpc.UserInfo, error)
	ActivateKey(ctx context.Context, code string) (*rpc.ActivateKeyResponse, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	IssueKey(ctx context.Context, subscriptionType string, durationDays int) (*rpc.KeyInfo, error)
	ListKeys(ctx context.Context) ([]rpc.KeyInfo, error)
	ListUsers(ctx context.Context) ([]rpc.UserInfo, error)
	ResetHardware(ctx context.Context, uid int64) error
	DeleteUser(ctx context.Context, uid int64) error
	WipeAll(ctx context.Context, secret string) (*rpc.WipeAllResponse, error)
}
