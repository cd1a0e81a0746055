// Package httpapi exposes the credential lifecycle and profile operations
// over HTTP/JSON.
package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/teamterraforge/tgmsauth/internal/logging"
	"github.com/teamterraforge/tgmsauth/internal/server/auth"
	"github.com/teamterraforge/tgmsauth/internal/server/authz"
	"github.com/teamterraforge/tgmsauth/internal/server/services"
)

// Service is the business API served by Handler. *services.UserService
// satisfies it.
type Service interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm string) error
	ForgotPassword(ctx context.Context, email string) (*services.ForgotPasswordResult, error)
	ResetPassword(ctx context.Context, token, next, confirm string) error
	DeleteAccount(ctx context.Context, userID uuid.UUID) error

	GetUserByEmail(ctx context.Context, email string) (*services.UserView, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*services.UserView, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd services.ProfileUpdate) (*services.UserView, error)
	GetPublicProfile(ctx context.Context, id uuid.UUID) (*services.PublicProfile, error)
	ListUsers(ctx context.Context, req services.PageRequest) (*services.Page, error)
}

type messageResponse struct {
	Message string `json:"message"`
}

type emailExistsResponse struct {
	Email  string `json:"email"`
	Exists bool   `json:"exists"`
}

type Handler struct {
	svc         Service
	authn       RequestAuthenticator
	log         logging.Logger
	phoneRegion string
}

func NewHandler(svc Service, authn RequestAuthenticator, log logging.Logger, phoneRegion string) *Handler {
	return &Handler{
		svc:         svc,
		authn:       authn,
		log:         log.With("module", "httpapi"),
		phoneRegion: phoneRegion,
	}
}

// Routes returns the instrumented router. Middleware runs tracing, then
// request logging, then authentication; each route checks its own
// requirement.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "No handler found for "+r.Method+" "+r.URL.Path, nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "Method "+r.Method+" is not supported", nil)
	})

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/register", h.require(authz.Public, h.handleRegister)).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", h.require(authz.Public, h.handleLogin)).Methods(http.MethodPost)

	r.HandleFunc("/api/users/me", h.require(authz.Authenticated, h.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/me", h.require(authz.Authenticated, h.handleUpdateMe)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/me", h.require(authz.Authenticated, h.handleDeleteMe)).Methods(http.MethodDelete)
	r.HandleFunc("/api/users/change-password", h.require(authz.Authenticated, h.handleChangePassword)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/forgot-password", h.require(authz.Public, h.handleForgotPassword)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/reset-password", h.require(authz.Public, h.handleResetPassword)).Methods(http.MethodPost)
	r.HandleFunc("/api/users/check-email", h.require(authz.Public, h.handleCheckEmail)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/admin/all", h.require(authz.AdminOnly, h.handleListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", h.require(authz.AdminOnly, h.handleGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}/public-profile", h.require(authz.Public, h.handlePublicProfile)).Methods(http.MethodGet)

	return otelhttp.NewHandler(h.loggingMiddleware(r, h.authenticate(r)), "tgms-auth")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload", nil)
		return
	}
	if err := req.validate(h.phoneRegion); err != nil {
		writeValidationError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload", nil)
		return
	}
	if err := req.validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// principal is only called behind a requirement that guarantees one.
func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetUserByEmail(r.Context(), principal(r).Subject)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload", nil)
		return
	}
	if err := req.validate(h.phoneRegion); err != nil {
		writeValidationError(w, r, err)
		return
	}

	view, err := h.svc.UpdateProfile(r.Context(), principal(r).UserID, services.ProfileUpdate{
		Name:  req.Name,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), principal(r).UserID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Account deleted successfully"})
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload", nil)
		return
	}
	if err := req.validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	err := h.svc.ChangePassword(r.Context(), principal(r).UserID, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password changed successfully"})
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload", nil)
		return
	}
	if err := req.validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	res, err := h.svc.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON payload", nil)
		return
	}
	if err := req.validate(); err != nil {
		writeValidationError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password has been reset successfully"})
}

func (h *Handler) handleCheckEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email query parameter is required", nil)
		return
	}

	exists, err := h.svc.EmailExists(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, emailExistsResponse{Email: email, Exists: exists})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be an integer", nil)
		return
	}
	size, err := intParam(q.Get("size"), 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "size must be an integer", nil)
		return
	}

	res, err := h.svc.ListUsers(r.Context(), services.PageRequest{
		Page:      page,
		Size:      size,
		SortBy:    q.Get("sortBy"),
		Direction: q.Get("direction"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.svc.GetUserByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	profile, err := h.svc.GetPublicProfile(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "id must be a UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
