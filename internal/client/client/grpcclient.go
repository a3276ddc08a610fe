package client

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *rpc.LicenseServiceClient

	mu            sync.RWMutex
	identityToken string
	adminToken    string
}

var _ Client = (*GRPCClient)(nil)

func withHeader(ctx context.Context, key, value string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(key, value)

	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) tokenInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {

	s.mu.RLock()
	identity, admin := s.identityToken, s.adminToken
	s.mu.RUnlock()

	if identity != "" {
		ctx = withHeader(ctx, common.IdentityTokenHeaderName, identity)
	}
	if admin != "" {
		ctx = withHeader(ctx, common.AdminTokenHeaderName, admin)
	}

	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a client for endpointURL. The connection is made
// lazily on the first call. adminToken may be empty. Extra dial options are
// appended after the defaults.
func NewGRPCClient(endpointURL, adminToken string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, adminToken: adminToken}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.tokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = rpc.NewLicenseServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) SetIdentityToken(token string) {
	s.mu.Lock()
	s.identityToken = token
	s.mu.Unlock()
}

func (s *GRPCClient) remember(resp *rpc.SessionResponse) {
	if resp != nil && resp.Token != "" {
		s.SetIdentityToken(resp.Token)
	}
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Ping(ctx context.Context) error {

	_, err := s.client.Ping(ctx, &rpc.PingRequest{})
	return mapError(err)

}

func (s *GRPCClient) Register(ctx context.Context, username, password, email string) (*rpc.SessionResponse, error) {

	resp, err := s.client.Register(ctx, &rpc.RegisterRequest{Username: username, Password: password, Email: email})
	if err != nil {
		return nil, mapError(err)
	}

	s.remember(resp)
	return resp, nil
}

func (s *GRPCClient) Login(ctx context.Context, username, password string) (*rpc.SessionResponse, error) {

	resp, err := s.client.Login(ctx, &rpc.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, mapError(err)
	}

	s.remember(resp)
	return resp, nil
}

func (s *GRPCClient) CheckSubscription(ctx context.Context, username, password, hwid string) (*rpc.SessionResponse, error) {

	resp, err := s.client.CheckSubscription(ctx, &rpc.CheckSubscriptionRequest{Username: username, Password: password, HWID: hwid})
	if err != nil {
		return nil, mapError(err)
	}

	s.remember(resp)
	return resp, nil
}

func (s *GRPCClient) CheckIdentity(ctx context.Context) (*rpc.UserInfo, error) {

	resp, err := s.client.CheckIdentity(ctx, &rpc.CheckIdentityRequest{})
	if err != nil {
		return nil, mapError(err)
	}

	return &resp.User, nil
}

func (s *GRPCClient) ActivateKey(ctx context.Context, code string) (*rpc.ActivateKeyResponse, error) {

	resp, err := s.client.ActivateKey(ctx, &rpc.ActivateKeyRequest{Code: code})
	if err != nil {
		return nil, mapError(err)
	}

	return resp, nil
}

func (s *GRPCClient) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {

	_, err := s.client.ChangePassword(ctx, &rpc.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	return mapError(err)

}

func (s *GRPCClient) IssueKey(ctx context.Context, subscriptionType string, durationDays int) (*rpc.KeyInfo, error) {

	resp, err := s.client.IssueKey(ctx, &rpc.IssueKeyRequest{SubscriptionType: subscriptionType, DurationDays: durationDays})
	if err != nil {
		return nil, mapError(err)
	}

	return &resp.Key, nil
}

func (s *GRPCClient) ListKeys(ctx context.Context) ([]rpc.KeyInfo, error) {

	resp, err := s.client.ListKeys(ctx, &rpc.ListKeysRequest{})
	if err != nil {
		return nil, mapError(err)
	}

	return resp.Keys, nil
}

func (s *GRPCClient) ListUsers(ctx context.Context) ([]rpc.UserInfo, error) {

	resp, err := s.client.ListUsers(ctx, &rpc.ListUsersRequest{})
	if err != nil {
		return nil, mapError(err)
	}

	return resp.Users, nil
}

func (s *GRPCClient) ResetHardware(ctx context.Context, uid int64) error {

	_, err := s.client.ResetHardware(ctx, &rpc.UserRequest{UID: uid})
	return mapError(err)

}

func (s *GRPCClient) DeleteUser(ctx context.Context, uid int64) error {

	_, err := s.client.DeleteUser(ctx, &rpc.UserRequest{UID: uid})
	return mapError(err)

}

func (s *GRPCClient) WipeAll(ctx context.Context, secret string) (*rpc.WipeAllResponse, error) {

	resp, err := s.client.WipeAll(ctx, &rpc.WipeAllRequest{Secret: secret})
	if err != nil {
		return nil, mapError(err)
	}

	return resp, nil
}
