package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

// RequireRole restricts a route to the given roles. Permanent staff (role
// STAFF) bypass the restriction entirely.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := StaffClaims(ctx)
		if !ok || claims.Role == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}

		if claims.Role == models.RoleStaff {
			ctx.Next()
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				ctx.Next()
				return
			}
		}

		utils.Error(ctx, http.StatusForbidden, 40310, "forbidden")
		ctx.Abort()
	}
}

// RequireAccess restricts a route to staff whose resolved capability set
// grants the named flag.
func RequireAccess(flag string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := StaffClaims(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}

		if !hasFlag(claims.Access, flag) {
			utils.Error(ctx, http.StatusForbidden, 40311, "forbidden")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func hasFlag(access models.AccessFlags, flag string) bool {
	switch flag {
	case "can_gate":
		return access.CanGate
	case "can_game":
		return access.CanGame
	case "can_prize":
		return access.CanPrize
	case "can_staff_checkin":
		return access.CanStaffCheckin
	case "can_manage_checkin_days":
		return access.CanManageCheckinDays
	default:
		return false
	}
}
