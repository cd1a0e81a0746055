package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/config"
	"github.com/teamterraforge/tgmsauth/internal/server/repositories/repomanager"
	"github.com/teamterraforge/tgmsauth/internal/server/services"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, nil, &fakeAuthn{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, nil, &fakeAuthn{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected error for invalid address")
	}
}

// startBufconn serves a real lifecycle service over an in-memory listener.
func startBufconn(t *testing.T) *grpc.ClientConn {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                   "0123456789abcdef0123456789abcdef",
		MinSecretLength:             32,
		AccessTokenValidityDuration: time.Hour,
		ResetTokenValidityDuration:  time.Hour,
		BcryptCost:                  bcrypt.MinCost,
		ExposeResetToken:            true,
		DefaultPhoneRegion:          "US",
	}
	codec, err := auth.NewCodec(cfg.SecretKey, cfg.MinSecretLength)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	svc := services.NewUserService(nil, repomanager.NewMemoryRepositoryManager(), codec, cfg, logging.Nop{})
	pipeline := auth.NewPipeline(codec, svc, logging.Nop{}, "grpc")

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewGRPCServer("bufnet", logging.Nop{}, svc, pipeline).Serve(ctx, lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return conn
}

func TestAuthService_EndToEnd(t *testing.T) {
	conn := startBufconn(t)
	ctx := context.Background()

	var reg services.AuthResult
	err := conn.Invoke(ctx, FullMethod("Register"), &RegisterRequest{
		Email:    "a@test.com",
		Password: "Pw1234",
		Name:     "Ann",
	}, &reg)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if reg.AccessToken == "" || reg.TokenType != "Bearer" || reg.User.Email != "a@test.com" {
		t.Fatalf("unexpected register result: %+v", reg)
	}

	err = conn.Invoke(ctx, FullMethod("Register"), &RegisterRequest{Email: "A@test.com", Password: "Pw1234"}, &services.AuthResult{})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("duplicate register: expected AlreadyExists, got %v", err)
	}

	var me services.UserView
	err = conn.Invoke(ctx, FullMethod("Me"), &MeRequest{}, &me)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous Me: expected Unauthenticated, got %v", err)
	}

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+reg.AccessToken)
	if err := conn.Invoke(authed, FullMethod("Me"), &MeRequest{}, &me); err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.ID != reg.User.ID {
		t.Fatalf("Me returned %v, want %v", me.ID, reg.User.ID)
	}

	var msg MessageResponse
	err = conn.Invoke(authed, FullMethod("ChangePassword"), &ChangePasswordRequest{
		CurrentPassword: "Pw1234",
		NewPassword:     "NewPw123",
		ConfirmPassword: "Mismatch",
	}, &msg)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("mismatched ChangePassword: expected InvalidArgument, got %v", err)
	}

	var forgot services.ForgotPasswordResult
	if err := conn.Invoke(ctx, FullMethod("ForgotPassword"), &ForgotPasswordRequest{Email: "a@test.com"}, &forgot); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	err = conn.Invoke(ctx, FullMethod("ResetPassword"), &ResetPasswordRequest{
		Token:           forgot.ResetToken,
		NewPassword:     "NewPw123",
		ConfirmPassword: "NewPw123",
	}, &msg)
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	var login services.AuthResult
	if err := conn.Invoke(ctx, FullMethod("Login"), &LoginRequest{Email: "a@test.com", Password: "NewPw123"}, &login); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}

	if err := conn.Invoke(authed, FullMethod("DeleteAccount"), &DeleteAccountRequest{}, &msg); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	err = conn.Invoke(ctx, FullMethod("Login"), &LoginRequest{Email: "a@test.com", Password: "NewPw123"}, &login)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("login after delete: expected Unauthenticated, got %v", err)
	}
}
