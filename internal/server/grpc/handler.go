package grpc

import (
	"context"

	"github.com/dmitrijs2005/keygate/internal/rpc"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/entitlement"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func subscriptionInfo(st entitlement.Status) rpc.SubscriptionInfo {
	return rpc.SubscriptionInfo{
		Type:      string(st.Type),
		ExpiresAt: st.ExpiresAt,
		Active:    st.Active,
	}
}

func userInfo(id *services.Identity) rpc.UserInfo {
	return rpc.UserInfo{
		UID:          id.UserID,
		Username:     id.UserName,
		Email:        id.Email,
		HWID:         id.HWID,
		CreatedAt:    id.CreatedAt,
		Subscription: subscriptionInfo(id.Status),
	}
}

func keyInfo(k *models.ActivationKey) rpc.KeyInfo {
	return rpc.KeyInfo{
		ID:               k.ID,
		Code:             k.Code,
		SubscriptionType: string(k.SubscriptionType),
		DurationDays:     k.DurationDays,
		Used:             k.Used,
		UsedBy:           k.UsedBy,
		UsedAt:           k.UsedAt,
		CreatedAt:        k.CreatedAt,
	}
}

func sessionResponse(sess *services.Session) *rpc.SessionResponse {
	return &rpc.SessionResponse{Token: sess.Token, User: userInfo(sess.Identity)}
}

func currentUser(ctx context.Context) (*auth.Subject, error) {
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no identity in context")
	}
	return sub, nil
}

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {

	return &rpc.PingResponse{Status: "OK"}, nil

}

func (s *GRPCServer) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.SessionResponse, error) {

	sess, err := s.auth.Register(ctx, services.RegisterRequest{
		UserName: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "uid", sess.Identity.UserID)
	return sessionResponse(sess), nil

}

func (s *GRPCServer) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.SessionResponse, error) {

	sess, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return sessionResponse(sess), nil

}

func (s *GRPCServer) CheckSubscription(ctx context.Context, req *rpc.CheckSubscriptionRequest) (*rpc.SessionResponse, error) {

	sess, err := s.auth.Authenticate(ctx, req.Username, req.Password, req.HWID)
	if err != nil {
		return nil, toStatus(err)
	}

	return sessionResponse(sess), nil

}

func (s *GRPCServer) CheckIdentity(ctx context.Context, req *rpc.CheckIdentityRequest) (*rpc.ProfileResponse, error) {
	sub, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.auth.AuthenticateByIdentity(ctx, sub)
	if err != nil {
		return nil, toStatus(err)
	}

	return &rpc.ProfileResponse{User: userInfo(id)}, nil
}

func (s *GRPCServer) ActivateKey(ctx context.Context, req *rpc.ActivateKeyRequest) (*rpc.ActivateKeyResponse, error) {
	sub, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	r, err := s.entitlements.RedeemKey(ctx, sub.UserID, req.Code)
	if err != nil {
		return nil, toStatus(err)
	}

	return &rpc.ActivateKeyResponse{
		KeyType:      string(r.KeyType),
		HWIDReset:    r.HardwareReset,
		Subscription: subscriptionInfo(r.Status),
	}, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *rpc.ChangePasswordRequest) (*rpc.Empty, error) {
	sub, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.auth.ChangePassword(ctx, sub.UserID, req.OldPassword, req.NewPassword); err != nil {
		return nil, toStatus(err)
	}

	return &rpc.Empty{}, nil
}

func (s *GRPCServer) IssueKey(ctx context.Context, req *rpc.IssueKeyRequest) (*rpc.IssueKeyResponse, error) {

	key, err := s.admin.IssueKey(ctx, services.IssueKeyRequest{
		SubscriptionType: req.SubscriptionType,
		DurationDays:     req.DurationDays,
	})
	if err != nil {
		return nil, toStatus(err)
	}

	return &rpc.IssueKeyResponse{Key: keyInfo(key)}, nil
}

func (s *GRPCServer) ListKeys(ctx context.Context, req *rpc.ListKeysRequest) (*rpc.ListKeysResponse, error) {

	keys, err := s.admin.ListKeys(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &rpc.ListKeysResponse{Keys: make([]rpc.KeyInfo, 0, len(keys))}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, keyInfo(k))
	}
	return resp, nil
}

func (s *GRPCServer) ListUsers(ctx context.Context, req *rpc.ListUsersRequest) (*rpc.ListUsersResponse, error) {

	users, err := s.admin.ListUsers(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &rpc.ListUsersResponse{Users: make([]rpc.UserInfo, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, userInfo(u))
	}
	return resp, nil
}

func (s *GRPCServer) ResetHardware(ctx context.Context, req *rpc.UserRequest) (*rpc.Empty, error) {

	if err := s.admin.ResetHardware(ctx, req.UID); err != nil {
		return nil, toStatus(err)
	}

	return &rpc.Empty{}, nil
}

func (s *GRPCServer) DeleteUser(ctx context.Context, req *rpc.UserRequest) (*rpc.Empty, error) {

	if err := s.admin.DeleteUser(ctx, req.UID); err != nil {
		return nil, toStatus(err)
	}

	s.logger.Info(ctx, "User deleted", "uid", req.UID)
	return &rpc.Empty{}, nil
}

func (s *GRPCServer) WipeAll(ctx context.Context, req *rpc.WipeAllRequest) (*rpc.WipeAllResponse, error) {

	res, err := s.admin.WipeAll(ctx, req.Secret)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Warn(ctx, "All data wiped", "users", res.UsersDeleted, "keys", res.KeysDeleted, "archive", res.ArchiveKey)
	return &rpc.WipeAllResponse{
		UsersDeleted: res.UsersDeleted,
		KeysDeleted:  res.KeysDeleted,
		ArchiveKey:   res.ArchiveKey,
	}, nil
}
