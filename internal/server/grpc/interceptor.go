package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/server/authz"
)

// authInterceptor runs the authentication pipeline on the authorization
// metadata and then enforces the method's requirement.
func (s *GRPCServer) authInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationMetadataKey); len(values) > 0 {
			header = values[0]
		}
	}
	ctx = s.authn.Authenticate(ctx, header)

	requirement := requirementFor(info.FullMethod)
	if _, err := authz.Check(ctx, requirement); err != nil {
		s.logger.Debug(ctx, "call rejected", "method", info.FullMethod, "requirement", requirement.String())
		return nil, statusError(err)
	}

	return handler(ctx, req)
}

// statusError maps service errors onto gRPC status codes. Internal details
// are never sent to the client.
func statusError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, common.ErrInvalidArgument),
		errors.Is(err, common.ErrPasswordMismatch),
		errors.Is(err, common.ErrNoOpChange),
		errors.Is(err, common.ErrInvalidOrExpiredToken):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUnauthenticated),
		errors.Is(err, common.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
