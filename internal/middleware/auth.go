package middleware

import (
	"context"
	"net/http"
	"strings"

	"neodukaan-backend/internal/auth"
	"neodukaan-backend/internal/store"
	"neodukaan-backend/pkg/utils"
)

type contextKey string

const ShopIDKey contextKey = "shop_id"
const EmailKey contextKey = "email"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	shops      store.ShopRepository
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, shops store.ShopRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		shops:      shops,
	}
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.RespondError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.RespondError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		m.serveWithToken(w, r, next, parts[1])
	})
}

// AuthenticateQuery accepts the token as ?token=, for websocket clients that
// cannot set headers.
func (m *AuthMiddleware) AuthenticateQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			utils.RespondError(w, http.StatusUnauthorized, "token parameter required")
			return
		}
		m.serveWithToken(w, r, next, token)
	})
}

func (m *AuthMiddleware) serveWithToken(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	// Check the shop still exists, so a deleted tenant's tokens stop working
	shop, err := m.shops.Get(r.Context(), claims.ShopID)
	if err != nil {
		utils.RespondError(w, http.StatusUnauthorized, "Shop not found")
		return
	}

	ctx := context.WithValue(r.Context(), ShopIDKey, shop.ID)
	ctx = context.WithValue(ctx, EmailKey, shop.Email)

	next.ServeHTTP(w, r.WithContext(ctx))
}

// GetShopIDFromContext extracts shop ID from request context
func GetShopIDFromContext(ctx context.Context) (string, bool) {
	shopID, ok := ctx.Value(ShopIDKey).(string)
	return shopID, ok && shopID != ""
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// WithShopID returns ctx carrying shopID, as Authenticate would set it.
func WithShopID(ctx context.Context, shopID string) context.Context {
	return context.WithValue(ctx, ShopIDKey, shopID)
}
