package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "keygate.v1.LicenseService"

// Method names.
const (
	MethodPing              = "Ping"
	MethodRegister          = "Register"
	MethodLogin             = "Login"
	MethodCheckSubscription = "CheckSubscription"
	MethodCheckIdentity     = "CheckIdentity"
	MethodActivateKey       = "ActivateKey"
	MethodChangePassword    = "ChangePassword"
	MethodIssueKey          = "IssueKey"
	MethodListKeys          = "ListKeys"
	MethodListUsers         = "ListUsers"
	MethodResetHardware     = "ResetHardware"
	MethodDeleteUser        = "DeleteUser"
	MethodWipeAll           = "WipeAll"
)

// FullMethod returns the gRPC path of a method, e.g. "/keygate.v1.LicenseService/Ping".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// LicenseServiceServer is implemented by the server.
type LicenseServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*SessionResponse, error)
	Login(context.Context, *LoginRequest) (*SessionResponse, error)
	CheckSubscription(context.Context, *CheckSubscriptionRequest) (*SessionResponse, error)
	CheckIdentity(context.Context, *CheckIdentityRequest) (*ProfileResponse, error)
	ActivateKey(context.Context, *ActivateKeyRequest) (*ActivateKeyResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
	IssueKey(context.Context, *IssueKeyRequest) (*IssueKeyResponse, error)
	ListKeys(context.Context, *ListKeysRequest) (*ListKeysResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
	ResetHardware(context.Context, *UserRequest) (*Empty, error)
	DeleteUser(context.Context, *UserRequest) (*Empty, error)
	WipeAll(context.Context, *WipeAllRequest) (*WipeAllResponse, error)
}

// RegisterLicenseServiceServer attaches srv to s.
func RegisterLicenseServiceServer(s grpc.ServiceRegistrar, srv LicenseServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed method to grpc's MethodHandler. Interceptors see the
// typed request and response; only the wire uses structpb.
func unary[Req, Resp any](method string, call func(LicenseServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	full := FullMethod(method)

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			req := new(Req)
			if err := Decode(in, req); err != nil {
				return nil, status.Error(codes.InvalidArgument, err.Error())
			}

			handler := func(ctx context.Context, r any) (any, error) {
				return call(srv.(LicenseServiceServer), ctx, r.(*Req))
			}

			var (
				out any
				err error
			)
			if interceptor == nil {
				out, err = handler(ctx, req)
			} else {
				out, err = interceptor(ctx, req, &grpc.UnaryServerInfo{Server: srv, FullMethod: full}, handler)
			}
			if err != nil {
				return nil, err
			}

			wire, err := Encode(out)
			if err != nil {
				return nil, status.Error(codes.Internal, err.Error())
			}
			return wire, nil
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LicenseServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, LicenseServiceServer.Ping),
		unary(MethodRegister, LicenseServiceServer.Register),
		unary(MethodLogin, LicenseServiceServer.Login),
		unary(MethodCheckSubscription, LicenseServiceServer.CheckSubscription),
		unary(MethodCheckIdentity, LicenseServiceServer.CheckIdentity),
		unary(MethodActivateKey, LicenseServiceServer.ActivateKey),
		unary(MethodChangePassword, LicenseServiceServer.ChangePassword),
		unary(MethodIssueKey, LicenseServiceServer.IssueKey),
		unary(MethodListKeys, LicenseServiceServer.ListKeys),
		unary(MethodListUsers, LicenseServiceServer.ListUsers),
		unary(MethodResetHardware, LicenseServiceServer.ResetHardware),
		unary(MethodDeleteUser, LicenseServiceServer.DeleteUser),
		unary(MethodWipeAll, LicenseServiceServer.WipeAll),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "keygate/v1/license.proto",
}
