package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arcadelab/staff-server/config"
	"github.com/arcadelab/staff-server/models"
)

// StaffClaims defines the JWT claims carried by a staff session token. The
// event key rides in the token so every downstream operation is scoped to the
// tenant the staff member authenticated against.
type StaffClaims struct {
	StaffID  string             `json:"staff_id"`
	Username string             `json:"username"`
	Role     string             `json:"role"`
	EventKey string             `json:"event_key"`
	Access   models.AccessFlags `json:"access"`
	jwt.RegisteredClaims
}

// GenerateStaffToken issues a JWT for an authenticated staff identity.
func GenerateStaffToken(staffID, username, role, eventKey string, access models.AccessFlags, duration time.Duration) (string, error) {
	cfg := config.Get()

	claims := StaffClaims{
		StaffID:  staffID,
		Username: username,
		Role:     role,
		EventKey: eventKey,
		Access:   access,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// ParseStaffToken validates a JWT and returns its claims.
func ParseStaffToken(tokenStr string) (*StaffClaims, error) {
	cfg := config.Get()
	parsed, err := jwt.ParseWithClaims(tokenStr, &StaffClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*StaffClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
