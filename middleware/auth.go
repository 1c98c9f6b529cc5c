package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arcadelab/staff-server/config"
	"github.com/arcadelab/staff-server/utils"
)

const (
	// ContextStaffClaimsKey stores the authenticated staff claims in Gin context.
	ContextStaffClaimsKey = "staff_claims"
	// SessionTokenHeader carries the renewed session token back to the client.
	SessionTokenHeader = "X-Staff-Session-Token"
)

// StaffAuthRequired ensures the request carries a valid staff JWT. Each
// authenticated request gets a renewed token via SessionTokenHeader so active
// terminals keep a rolling session.
func StaffAuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authorization header missing")
			ctx.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(ctx, http.StatusUnauthorized, 40102, "invalid authorization header format")
			ctx.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40103, "empty bearer token")
			ctx.Abort()
			return
		}

		if utils.IsTokenBlacklisted(tokenString) {
			utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
			ctx.Abort()
			return
		}

		claims, err := utils.ParseStaffToken(tokenString)
		if err != nil {
			utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid or expired token")
			ctx.Abort()
			return
		}

		cfg := config.Get()
		renewed, err := utils.GenerateStaffToken(claims.StaffID, claims.Username, claims.Role,
			claims.EventKey, claims.Access, time.Duration(cfg.JWTExpiresHours)*time.Hour)
		if err == nil {
			ctx.Header(SessionTokenHeader, renewed)
		}

		ctx.Set(ContextStaffClaimsKey, claims)
		ctx.Next()
	}
}

// StaffClaims extracts the authenticated claims stored by StaffAuthRequired.
func StaffClaims(ctx *gin.Context) (*utils.StaffClaims, bool) {
	v, ok := ctx.Get(ContextStaffClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.StaffClaims)
	return claims, ok
}
