package grpc

import (
	"context"

	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/services"
)

func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := statusError(err)
	s.logger.Warn(ctx, "call failed", "method", method, "error", err)
	return st
}

func (s *GRPCServer) Register(ctx context.Context, req *RegisterRequest) (*services.AuthResult, error) {

	s.logger.Info(ctx, "Registration request")

	result, err := s.svc.Register(ctx, services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		return nil, s.fail(ctx, "Register", err)
	}

	s.logger.Info(ctx, "Registered", "user_id", result.User.ID)
	return result, nil
}

func (s *GRPCServer) Login(ctx context.Context, req *LoginRequest) (*services.AuthResult, error) {

	result, err := s.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.fail(ctx, "Login", err)
	}

	return result, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *MeRequest) (*services.UserView, error) {

	p, _ := auth.PrincipalFromContext(ctx)
	view, err := s.svc.GetUserByEmail(ctx, p.Subject)
	if err != nil {
		return nil, s.fail(ctx, "Me", err)
	}

	return view, nil
}

func (s *GRPCServer) ChangePassword(ctx context.Context, req *ChangePasswordRequest) (*MessageResponse, error) {

	p, _ := auth.PrincipalFromContext(ctx)
	if err := s.svc.ChangePassword(ctx, p.UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword); err != nil {
		return nil, s.fail(ctx, "ChangePassword", err)
	}

	return &MessageResponse{Message: "Password changed successfully"}, nil
}

func (s *GRPCServer) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) (*services.ForgotPasswordResult, error) {

	result, err := s.svc.ForgotPassword(ctx, req.Email)
	if err != nil {
		return nil, s.fail(ctx, "ForgotPassword", err)
	}

	return result, nil
}

func (s *GRPCServer) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*MessageResponse, error) {

	if err := s.svc.ResetPassword(ctx, req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		return nil, s.fail(ctx, "ResetPassword", err)
	}

	return &MessageResponse{Message: "Password has been reset successfully"}, nil
}

func (s *GRPCServer) DeleteAccount(ctx context.Context, _ *DeleteAccountRequest) (*MessageResponse, error) {

	p, _ := auth.PrincipalFromContext(ctx)
	if err := s.svc.DeleteAccount(ctx, p.UserID); err != nil {
		return nil, s.fail(ctx, "DeleteAccount", err)
	}

	return &MessageResponse{Message: "Account deleted successfully"}, nil
}
