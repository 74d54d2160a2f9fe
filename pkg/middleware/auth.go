package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"ddash-backend/pkg/apperrors"
	"ddash-backend/pkg/models"
	"ddash-backend/pkg/utils"
)

// ContextKey 用于在context中存储用户信息的键
type ContextKey string

const (
	UserContextKey   ContextKey = "user"
	ClaimsContextKey ContextKey = "claims"
)

// TokenResolver validates an access token and loads the user it belongs to
type TokenResolver interface {
	ResolveAccessToken(ctx context.Context, token string) (*models.User, *models.TokenClaims, error)
}

// AuthMiddleware JWT认证中间件
func AuthMiddleware(resolver TokenResolver, debug bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 从Authorization头获取token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.WriteError(w, apperrors.Unauthenticated("Missing authorization header"))
				return
			}

			// 检查Bearer前缀
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				utils.WriteError(w, apperrors.Unauthenticated("Invalid authorization header format"))
				return
			}

			user, claims, err := resolver.ResolveAccessToken(r.Context(), tokenString)
			if err != nil {
				if debug {
					fmt.Printf("❌ Auth middleware: %v\n", err)
				}
				utils.WriteError(w, err)
				return
			}

			if debug {
				fmt.Printf("✅ Auth middleware: Authentication successful for user %s (%s)\n", user.ID, user.Email)
			}

			setLogUser(r.Context(), user.ID)

			// 将用户信息添加到请求context中
			ctx := context.WithValue(r.Context(), UserContextKey, user)
			ctx = context.WithValue(ctx, ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext 从context中获取用户信息
func GetUserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	return user, ok
}

// GetClaimsFromContext returns the claims of the token that authenticated the request
func GetClaimsFromContext(ctx context.Context) (*models.TokenClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.TokenClaims)
	return claims, ok
}

// RequireUser 要求用户必须已认证的辅助函数
func RequireUser(ctx context.Context) (*models.User, error) {
	user, ok := GetUserFromContext(ctx)
	if !ok || user == nil {
		return nil, apperrors.Unauthenticated("Authentication required")
	}
	return user, nil
}
