package grpc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/teamterraforge/tgmsauth/internal/server/authz"
	"github.com/teamterraforge/tgmsauth/internal/server/services"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "tgms.auth.v1.AuthService"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MeRequest struct{}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type DeleteAccountRequest struct{}

type MessageResponse struct {
	Message string `json:"message"`
}

// AuthServiceServer is the set of unary methods served under ServiceName.
type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*services.AuthResult, error)
	Login(context.Context, *LoginRequest) (*services.AuthResult, error)
	Me(context.Context, *MeRequest) (*services.UserView, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*MessageResponse, error)
	ForgotPassword(context.Context, *ForgotPasswordRequest) (*services.ForgotPasswordResult, error)
	ResetPassword(context.Context, *ResetPasswordRequest) (*MessageResponse, error)
	DeleteAccount(context.Context, *DeleteAccountRequest) (*MessageResponse, error)
}

// FullMethod returns the wire name of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// methodRequirements lists the access requirement of each method. Methods
// missing here need an authenticated caller.
var methodRequirements = map[string]authz.Requirement{
	FullMethod("Register"):       authz.Public,
	FullMethod("Login"):          authz.Public,
	FullMethod("ForgotPassword"): authz.Public,
	FullMethod("ResetPassword"):  authz.Public,
	FullMethod("Me"):             authz.Authenticated,
	FullMethod("ChangePassword"): authz.Authenticated,
	FullMethod("DeleteAccount"):  authz.Authenticated,
}

func requirementFor(fullMethod string) authz.Requirement {
	if r, ok := methodRequirements[fullMethod]; ok {
		return r
	}
	return authz.Authenticated
}

func unary[Req, Resp any](method string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(AuthServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", AuthServiceServer.Register),
		unary("Login", AuthServiceServer.Login),
		unary("Me", AuthServiceServer.Me),
		unary("ChangePassword", AuthServiceServer.ChangePassword),
		unary("ForgotPassword", AuthServiceServer.ForgotPassword),
		unary("ResetPassword", AuthServiceServer.ResetPassword),
		unary("DeleteAccount", AuthServiceServer.DeleteAccount),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tgms/auth/v1/auth",
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&authServiceDesc, srv)
}
