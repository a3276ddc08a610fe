package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// LicenseServiceClient is a typed client for keygate.v1.LicenseService.
type LicenseServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewLicenseServiceClient(cc grpc.ClientConnInterface) *LicenseServiceClient {
	return &LicenseServiceClient{cc: cc}
}

func invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, req *Req, opts ...grpc.CallOption) (*Resp, error) {
	in, err := Encode(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	resp := new(Resp)
	if err := Decode(out, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *LicenseServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingRequest, PingResponse](ctx, c.cc, MethodPing, in, opts...)
}

func (c *LicenseServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[RegisterRequest, SessionResponse](ctx, c.cc, MethodRegister, in, opts...)
}

func (c *LicenseServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[LoginRequest, SessionResponse](ctx, c.cc, MethodLogin, in, opts...)
}

func (c *LicenseServiceClient) CheckSubscription(ctx context.Context, in *CheckSubscriptionRequest, opts ...grpc.CallOption) (*SessionResponse, error) {
	return invoke[CheckSubscriptionRequest, SessionResponse](ctx, c.cc, MethodCheckSubscription, in, opts...)
}

func (c *LicenseServiceClient) CheckIdentity(ctx context.Context, in *CheckIdentityRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[CheckIdentityRequest, ProfileResponse](ctx, c.cc, MethodCheckIdentity, in, opts...)
}

func (c *LicenseServiceClient) ActivateKey(ctx context.Context, in *ActivateKeyRequest, opts ...grpc.CallOption) (*ActivateKeyResponse, error) {
	return invoke[ActivateKeyRequest, ActivateKeyResponse](ctx, c.cc, MethodActivateKey, in, opts...)
}

func (c *LicenseServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[ChangePasswordRequest, Empty](ctx, c.cc, MethodChangePassword, in, opts...)
}

func (c *LicenseServiceClient) IssueKey(ctx context.Context, in *IssueKeyRequest, opts ...grpc.CallOption) (*IssueKeyResponse, error) {
	return invoke[IssueKeyRequest, IssueKeyResponse](ctx, c.cc, MethodIssueKey, in, opts...)
}

func (c *LicenseServiceClient) ListKeys(ctx context.Context, in *ListKeysRequest, opts ...grpc.CallOption) (*ListKeysResponse, error) {
	return invoke[ListKeysRequest, ListKeysResponse](ctx, c.cc, MethodListKeys, in, opts...)
}

func (c *LicenseServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersRequest, ListUsersResponse](ctx, c.cc, MethodListUsers, in, opts...)
}

func (c *LicenseServiceClient) ResetHardware(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[UserRequest, Empty](ctx, c.cc, MethodResetHardware, in, opts...)
}

func (c *LicenseServiceClient) DeleteUser(ctx context.Context, in *UserRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[UserRequest, Empty](ctx, c.cc, MethodDeleteUser, in, opts...)
}

func (c *LicenseServiceClient) WipeAll(ctx context.Context, in *WipeAllRequest, opts ...grpc.CallOption) (*WipeAllResponse, error) {
	return invoke[WipeAllRequest, WipeAllResponse](ctx, c.cc, MethodWipeAll, in, opts...)
}
