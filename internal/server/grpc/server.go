// Package grpc serves keygate.v1.LicenseService.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/keygate/internal/logging"
	"github.com/dmitrijs2005/keygate/internal/rpc"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/config"
	"github.com/dmitrijs2005/keygate/internal/server/metrics"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/services"
	"google.golang.org/grpc"
)

type AuthService interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.Session, error)
	Login(ctx context.Context, userName, password string) (*services.Session, error)
	Authenticate(ctx context.Context, userName, password, hwid string) (*services.Session, error)
	AuthenticateByIdentity(ctx context.Context, sub *auth.Subject) (*services.Identity, error)
	VerifyIdentityToken(ctx context.Context, token string) (*auth.Subject, error)
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
}

type EntitlementService interface {
	RedeemKey(ctx context.Context, userID int64, code string) (*services.Redemption, error)
}

type AdminService interface {
	IssueKey(ctx context.Context, req services.IssueKeyRequest) (*models.ActivationKey, error)
	ListKeys(ctx context.Context) ([]*models.ActivationKey, error)
	ListUsers(ctx context.Context) ([]*services.Identity, error)
	ResetHardware(ctx context.Context, userID int64) error
	DeleteUser(ctx context.Context, userID int64) error
	WipeAll(ctx context.Context, secret string) (*services.WipeResult, error)
}

type GRPCServer struct {
	address      string
	auth         AuthService
	entitlements EntitlementService
	admin        AdminService
	logger       logging.Logger
	metrics      *metrics.Metrics
	adminToken   []byte
	limiter      *peerLimiter
}

func NewGRPCServer(cfg *config.Config, l logging.Logger, mx *metrics.Metrics,
	as AuthService, es EntitlementService, ad AdminService) *GRPCServer {
	return &GRPCServer{
		address:      cfg.EndpointAddrGRPC,
		auth:         as,
		entitlements: es,
		admin:        ad,
		logger:       l.With("module", "grpc_server"),
		metrics:      mx,
		adminToken:   []byte(cfg.AdminToken),
		limiter:      newPeerLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
	}
}

// newServer builds a grpc.Server with the interceptor chain and the service
// registered.
func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		s.loggingInterceptor,
		s.rateLimitInterceptor,
		s.accessInterceptor,
	))
	rpc.RegisterLicenseServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
