package grpc

import (
	"context"
	"net"
	"strings"
	"testing"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/rpc"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

func okHandler(called *bool) grpc.UnaryHandler {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		*called = true
		return "ok", nil
	}
}

func failHandler(t *testing.T) grpc.UnaryHandler {
	return func(ctx context.Context, req interface{}) (interface{}, error) {
		t.Fatal("handler should not be called")
		return nil, nil
	}
}

func info(method string) *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: rpc.FullMethod(method)}
}

func TestAccessInterceptor_PublicAllowsWithoutToken(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	called := false
	resp, err := s.accessInterceptor(context.Background(), nil, info(rpc.MethodCheckSubscription), okHandler(&called))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called || resp != "ok" {
		t.Fatalf("handler not called or bad resp: %v", resp)
	}
}

func TestAccessInterceptor_Identity_MissingToken(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	_, err := s.accessInterceptor(context.Background(), nil, info(rpc.MethodActivateKey), failHandler(t))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
	if status.Convert(err).Message() != "missing token" {
		t.Fatalf("expected 'missing token', got %q", status.Convert(err).Message())
	}
}

func TestAccessInterceptor_Identity_InvalidToken(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	md := metadata.New(map[string]string{common.IdentityTokenHeaderName: "not-a-valid-jwt"})
	ctx := metadata.NewIncomingContext(context.Background(), md)

	_, err := s.accessInterceptor(ctx, nil, info(rpc.MethodCheckIdentity), failHandler(t))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", status.Code(err))
	}
}

func TestAccessInterceptor_Identity_ValidToken_SetsUserID(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	token, err := testToken(42, false)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	md := metadata.New(map[string]string{common.IdentityTokenHeaderName: token})
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var got int64
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		got, _ = UserIDFromContext(ctx)
		return "ok", nil
	}

	if _, err := s.accessInterceptor(ctx, nil, info(rpc.MethodActivateKey), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("user id not propagated: got %d", got)
	}
}

func TestAccessInterceptor_CheckIdentityNeedsHardwareVerifiedToken(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	loginToken, err := testToken(42, false)
	if err != nil {
		t.Fatalf("testToken error: %v", err)
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.IdentityTokenHeaderName, loginToken))

	_, err = s.accessInterceptor(ctx, nil, info(rpc.MethodCheckIdentity), failHandler(t))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated for unverified token, got %v", status.Code(err))
	}

	called := false
	if _, err := s.accessInterceptor(ctx, nil, info(rpc.MethodChangePassword), okHandler(&called)); err != nil || !called {
		t.Fatalf("unverified token on ChangePassword: err=%v called=%v", err, called)
	}

	fullToken, err := testToken(42, true)
	if err != nil {
		t.Fatalf("testToken error: %v", err)
	}
	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.IdentityTokenHeaderName, fullToken))

	var sub *auth.Subject
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		sub, _ = SubjectFromContext(ctx)
		return "ok", nil
	}
	if _, err := s.accessInterceptor(ctx, nil, info(rpc.MethodCheckIdentity), h); err != nil {
		t.Fatalf("verified token: %v", err)
	}
	if sub == nil || !sub.HardwareVerified || sub.UserID != 42 {
		t.Fatalf("subject not propagated: %+v", sub)
	}
}

func TestAccessInterceptor_ReplacedAccountRejected(t *testing.T) {
	s := newServer(&fakeAuth{verifyErr: common.ErrInvalidToken}, &fakeEntitlements{}, &fakeAdmin{})

	token, err := testToken(1, true)
	if err != nil {
		t.Fatalf("testToken error: %v", err)
	}
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.IdentityTokenHeaderName, token))

	_, err = s.accessInterceptor(ctx, nil, info(rpc.MethodActivateKey), failHandler(t))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("want Unauthenticated, got %v", status.Code(err))
	}
}

func TestAccessInterceptor_Admin(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	_, err := s.accessInterceptor(context.Background(), nil, info(rpc.MethodWipeAll), failHandler(t))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("missing token: want Unauthenticated, got %v", status.Code(err))
	}

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AdminTokenHeaderName, "nope"))
	_, err = s.accessInterceptor(bad, nil, info(rpc.MethodIssueKey), failHandler(t))
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("wrong token: want PermissionDenied, got %v", status.Code(err))
	}

	good := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AdminTokenHeaderName, "admin-token"))
	called := false
	if _, err := s.accessInterceptor(good, nil, info(rpc.MethodListUsers), okHandler(&called)); err != nil || !called {
		t.Fatalf("good token: err=%v called=%v", err, called)
	}
}

func TestAccessInterceptor_AdminDisabledWithoutConfiguredToken(t *testing.T) {
	cfg := testConfig()
	cfg.AdminToken = ""
	s := NewGRPCServer(cfg, nopLogger{}, nil, &fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.AdminTokenHeaderName, ""))
	_, err := s.accessInterceptor(ctx, nil, info(rpc.MethodListKeys), failHandler(t))
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("want PermissionDenied, got %v", status.Code(err))
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimit = 0.001
	cfg.AuthRateBurst = 1
	mx := metrics.New()
	s := NewGRPCServer(cfg, nopLogger{}, mx, &fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	ctx := peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(10, 0, 0, 1), Port: 1234}})

	called := false
	if _, err := s.rateLimitInterceptor(ctx, nil, info(rpc.MethodLogin), okHandler(&called)); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := s.rateLimitInterceptor(ctx, nil, info(rpc.MethodLogin), failHandler(t))
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("want ResourceExhausted, got %v", status.Code(err))
	}
	expected := `
# HELP keygate_rate_limited_requests_total Requests rejected by the per-peer rate limiter.
# TYPE keygate_rate_limited_requests_total counter
keygate_rate_limited_requests_total 1
`
	if err := testutil.GatherAndCompare(mx.Gatherer(), strings.NewReader(expected), "keygate_rate_limited_requests_total"); err != nil {
		t.Fatalf("drop not recorded: %v", err)
	}

	// not limited
	called = false
	if _, err := s.rateLimitInterceptor(ctx, nil, info(rpc.MethodPing), okHandler(&called)); err != nil || !called {
		t.Fatalf("ping should pass: %v", err)
	}
}

func TestLoggingInterceptor_AssignsRequestID(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeEntitlements{}, &fakeAdmin{})

	var got string
	h := func(ctx context.Context, req interface{}) (interface{}, error) {
		got = RequestIDFromContext(ctx)
		return nil, status.Error(codes.NotFound, "x")
	}
	_, err := s.loggingInterceptor(context.Background(), nil, info(rpc.MethodPing), h)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("error not passed through: %v", err)
	}
	if len(got) != 36 {
		t.Fatalf("want uuid request id, got %q", got)
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.RequestIDHeaderName, "req-1"))
	_, _ = s.loggingInterceptor(ctx, nil, info(rpc.MethodPing), h)
	if got != "req-1" {
		t.Fatalf("want caller's request id, got %q", got)
	}
}
