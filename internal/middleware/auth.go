package middleware

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/famsplit/internal/auth"
	"github.com/mmynk/famsplit/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// UsernameKey is the context key for storing the authenticated username.
	UsernameKey contextKey = "username"
	// RoleKey is the context key for storing the authenticated user's role.
	RoleKey contextKey = "role"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetUsername extracts the username from the context.
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(UsernameKey).(string)
	return username
}

// GetRole extracts the role from the context. Unauthenticated contexts
// report RoleMember.
func GetRole(ctx context.Context) models.Role {
	role, _ := ctx.Value(RoleKey).(string)
	return models.ParseRole(role)
}

// WithClaims returns ctx carrying the session claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UsernameKey, claims.Username)
	ctx = context.WithValue(ctx, RoleKey, claims.Role)
	return ctx
}

// SessionToken extracts a session token from an "Authorization: Bearer"
// header, falling back to the session cookie. Returns "" if neither is set.
func SessionToken(header http.Header) (string, error) {
	if authHeader := header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", auth.ErrInvalidToken
		}
		return parts[1], nil
	}

	for _, line := range header.Values("Cookie") {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == auth.SessionCookieName && c.Value != "" {
				return c.Value, nil
			}
		}
	}
	return "", nil
}

// authInterceptor validates session tokens on unary and server-streaming
// calls. With required set, calls without a valid token are rejected.
type authInterceptor struct {
	jwtManager *auth.JWTManager
	required   bool
}

// RequireAuth returns an interceptor that validates session tokens and
// requires authentication. It adds the user ID, username and role to the
// request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.Interceptor {
	return &authInterceptor{jwtManager: jwtManager, required: true}
}

// OptionalAuth returns an interceptor that validates session tokens if
// present, but allows requests without authentication. Handlers decide
// per procedure whether a user is needed.
func OptionalAuth(jwtManager *auth.JWTManager) connect.Interceptor {
	return &authInterceptor{jwtManager: jwtManager}
}

func (i *authInterceptor) authenticate(ctx context.Context, header http.Header) (context.Context, error) {
	token, err := SessionToken(header)
	if err != nil {
		if i.required {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		return ctx, nil
	}
	if token == "" {
		if i.required {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
		}
		return ctx, nil
	}

	claims, err := i.jwtManager.Validate(token)
	if err != nil {
		if i.required {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		return ctx, nil
	}
	return WithClaims(ctx, claims), nil
}

func (i *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, err := i.authenticate(ctx, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := i.authenticate(ctx, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}
