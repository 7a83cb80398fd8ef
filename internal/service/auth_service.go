package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/models"
	"github.com/mmynk/famsplit/internal/storage"
	"github.com/mmynk/famsplit/pkg/api"
	"github.com/mmynk/famsplit/pkg/api/apiconnect"
)

var _ apiconnect.AuthServiceHandler = (*AuthService)(nil)

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	store         storage.Store
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, store storage.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		store:         store,
		logger:        logger,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "username", req.Msg.Username)

	user, err := s.authenticator.Register(ctx, req.Msg.Username, req.Msg.Password, models.ParseRole(req.Msg.Role), req.Msg.Email)
	if err != nil {
		return nil, fail(s.logger, "Registration failed", err, "username", req.Msg.Username)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, fail(s.logger, "Failed to generate token", err, "user_id", user.ID)
	}

	resp := connect.NewResponse(&api.RegisterResponse{User: toAPIUser(user), Token: token})
	setSessionCookie(resp.Header(), token, s.jwtManager.TTL())

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return resp, nil
}

// Login authenticates a user, returns a session token and sets the
// session cookie.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "username", req.Msg.Username)

	if strings.TrimSpace(req.Msg.Username) == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, auth.ErrInvalidCredentials)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "username", req.Msg.Username, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		return nil, fail(s.logger, "Failed to generate token", err, "user_id", user.ID)
	}

	resp := connect.NewResponse(&api.LoginResponse{User: toAPIUser(user), Token: token})
	setSessionCookie(resp.Header(), token, s.jwtManager.TTL())

	s.logger.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return resp, nil
}

// Logout clears the session cookie. Tokens are stateless, so bearer
// clients simply discard theirs.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[api.LogoutRequest]) (*connect.Response[api.LogoutResponse], error) {
	resp := connect.NewResponse(&api.LogoutResponse{})
	setSessionCookie(resp.Header(), "", -1)
	return resp, nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	user, err := currentUser(ctx, s.store)
	if err != nil {
		return nil, fail(s.logger, "GetCurrentUser failed", err)
	}
	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}

// setSessionCookie writes the session cookie. A negative ttl expires it.
func setSessionCookie(header http.Header, token string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(ttl.Seconds())
	}
	header.Add("Set-Cookie", cookie.String())
}
