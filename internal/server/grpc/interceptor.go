package grpc

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/rpc"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const (
	subjectKey   ctxKey = "subject"
	requestIDKey ctxKey = "requestID"
)

type access int

const (
	accessPublic access = iota
	accessIdentity
	// accessVerifiedIdentity needs a token issued after a hardware check.
	accessVerifiedIdentity
	accessAdmin
)

var methodAccess = map[string]access{
	rpc.FullMethod(rpc.MethodCheckIdentity):  accessVerifiedIdentity,
	rpc.FullMethod(rpc.MethodActivateKey):    accessIdentity,
	rpc.FullMethod(rpc.MethodChangePassword): accessIdentity,
	rpc.FullMethod(rpc.MethodIssueKey):       accessAdmin,
	rpc.FullMethod(rpc.MethodListKeys):       accessAdmin,
	rpc.FullMethod(rpc.MethodListUsers):      accessAdmin,
	rpc.FullMethod(rpc.MethodResetHardware):  accessAdmin,
	rpc.FullMethod(rpc.MethodDeleteUser):     accessAdmin,
	rpc.FullMethod(rpc.MethodWipeAll):        accessAdmin,
}

var rateLimitedMethods = map[string]bool{
	rpc.FullMethod(rpc.MethodRegister):          true,
	rpc.FullMethod(rpc.MethodLogin):             true,
	rpc.FullMethod(rpc.MethodCheckSubscription): true,
}

// SubjectFromContext returns the subject of a verified identity token.
func SubjectFromContext(ctx context.Context) (*auth.Subject, bool) {
	sub, ok := ctx.Value(subjectKey).(*auth.Subject)
	return sub, ok && sub != nil && sub.UserID > 0
}

// UserIDFromContext returns the user id of a verified identity token.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return 0, false
	}
	return sub.UserID, true
}

// RequestIDFromContext returns the id assigned to the current call.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func metadataValue(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// loggingInterceptor tags the call with a request id, logs its outcome and
// records it in the metrics.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	requestID := metadataValue(ctx, common.RequestIDHeaderName)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, requestID))

	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)
	code := status.Code(err)

	s.metrics.GRPCRequest(info.FullMethod, code.String(), elapsed)

	args := []any{"request_id", requestID, "method", info.FullMethod, "code", code.String(), "duration", elapsed}
	switch code {
	case codes.OK:
		s.logger.Info(ctx, "request served", args...)
	case codes.Internal, codes.Unavailable, codes.Unknown:
		s.logger.Error(ctx, "request failed", append(args, "error", err)...)
	default:
		s.logger.Warn(ctx, "request rejected", append(args, "error", err)...)
	}

	return resp, err
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if !rateLimitedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	key := "unknown"
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		key = peerHost(p.Addr.String())
	}
	if !s.limiter.Allow(key) {
		s.metrics.RateLimited()
		return nil, status.Error(codes.ResourceExhausted, "too many requests")
	}

	return handler(ctx, req)
}

// accessInterceptor enforces identity tokens and the admin token per method.
func (s *GRPCServer) accessInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	switch level := methodAccess[info.FullMethod]; level {
	case accessIdentity, accessVerifiedIdentity:
		token := metadataValue(ctx, common.IdentityTokenHeaderName)
		if len(token) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		sub, err := s.auth.VerifyIdentityToken(ctx, token)
		if err != nil {
			return nil, toStatus(err)
		}
		if level == accessVerifiedIdentity && !sub.HardwareVerified {
			return nil, status.Error(codes.Unauthenticated, "token lacks hardware verification")
		}

		ctx = context.WithValue(ctx, subjectKey, sub)

	case accessAdmin:
		if len(s.adminToken) == 0 {
			return nil, status.Error(codes.PermissionDenied, "admin api disabled")
		}
		token := metadataValue(ctx, common.AdminTokenHeaderName)
		if len(token) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing admin token")
		}
		if subtle.ConstantTimeCompare(s.adminToken, []byte(token)) != 1 {
			return nil, status.Error(codes.PermissionDenied, "invalid admin token")
		}
	}

	return handler(ctx, req)
}
