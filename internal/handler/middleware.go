package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/renewalwatch/backend/internal/apperror"
)

type contextKey string

const (
	// UserIDKey holds the authenticated caller's id.
	UserIDKey contextKey = "userID"
	// TenantScopeKey holds the tenant the token is limited to, if any.
	TenantScopeKey contextKey = "tenantScope"
)

var errInvalidToken = errors.New("invalid token")

// Claims are the fields read from access tokens issued by the auth service.
type Claims struct {
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns the caller and optional
// tenant scope.
func ParseToken(tokenString, secret string) (uuid.UUID, *uuid.UUID, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, nil, errInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, errInvalidToken
	}
	if claims.TenantID == "" {
		return userID, nil, nil
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return uuid.Nil, nil, errInvalidToken
	}
	return userID, &tenantID, nil
}

// NewAuthMiddleware requires a valid bearer token signed with secret.
func NewAuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				respondAppError(w, apperror.Unauthorized("missing authorization header"))
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondAppError(w, apperror.Unauthorized("invalid authorization header"))
				return
			}

			userID, scope, err := ParseToken(parts[1], secret)
			if err != nil {
				respondAppError(w, apperror.Unauthorized("invalid token"))
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			if scope != nil {
				ctx = context.WithValue(ctx, TenantScopeKey, *scope)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the authenticated caller, or uuid.Nil.
func GetUserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(UserIDKey).(uuid.UUID)
	return id
}

// authorizeTenant rejects tenant-scoped tokens used against another tenant.
func authorizeTenant(ctx context.Context, tenantID uuid.UUID) error {
	scope, ok := ctx.Value(TenantScopeKey).(uuid.UUID)
	if ok && scope != tenantID {
		return apperror.Forbidden("token is not valid for this tenant")
	}
	return nil
}
