// Package grpc serves the credential lifecycle over gRPC with a JSON codec.
package grpc

import (
	"context"
	"net"

	"github.com/google/uuid"
	"google.golang.org/grpc"

	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/server/services"
)

// Service is the subset of the lifecycle service exposed over gRPC.
type Service interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	GetUserByEmail(ctx context.Context, email string) (*services.UserView, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm string) error
	ForgotPassword(ctx context.Context, email string) (*services.ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, token, next, confirm string) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error
}

// RequestAuthenticator attaches a principal for a valid authorization value
// and leaves the context anonymous otherwise.
type RequestAuthenticator interface {
	Authenticate(ctx context.Context, header string) context.Context
}

type GRPCServer struct {
	address string
	svc     Service
	authn   RequestAuthenticator
	logger  logging.Logger
}

func NewGRPCServer(a string, l logging.Logger, svc Service, authn RequestAuthenticator) *GRPCServer {
	return &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		svc:     svc,
		authn:   authn,
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops
// gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.authInterceptor))

	// registers service
	RegisterAuthServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
