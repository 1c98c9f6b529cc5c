package controllers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

func seedStaff(t *testing.T, db *gorm.DB, eventKey, username, role, password string, active bool) *models.Staff {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	staff := models.Staff{
		EventKey:     eventKey,
		Username:     username,
		Role:         role,
		IsActive:     active,
		PasswordHash: hash,
	}
	if err := db.Create(&staff).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	return &staff
}

func newAuthRouter(t *testing.T) (*gin.Engine, *AuthController) {
	t.Helper()
	db := newTestDB(t)
	ac := NewAuthController(db)
	r := gin.New()
	r.POST("/auth/login", ac.Login)
	return r, ac
}

func TestLoginIssuesScopedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r, ac := newAuthRouter(t)
	seedStaff(t, ac.db, "ev1", "gate01", models.RoleGate, "s3cret", true)

	resp := postJSON(t, r, "/auth/login", map[string]string{
		"event_key": "ev1",
		"username":  "GATE01",
		"password":  "s3cret",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.Code, resp.Body.String())
	}

	body := decodeResponse(t, resp)
	data := body.Data.(map[string]interface{})
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("no token in response")
	}

	claims, err := utils.ParseStaffToken(token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if claims.EventKey != "ev1" || claims.Role != models.RoleGate {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.Access.CanGate {
		t.Fatalf("access = %+v, want gate defaults", claims.Access)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r, ac := newAuthRouter(t)
	seedStaff(t, ac.db, "ev1", "gate01", models.RoleGate, "s3cret", true)

	cases := []struct {
		name    string
		payload map[string]string
		want    int
	}{
		{"wrong password", map[string]string{"event_key": "ev1", "username": "gate01", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"event_key": "ev1", "username": "ghost", "password": "s3cret"}, http.StatusUnauthorized},
		{"wrong event", map[string]string{"event_key": "ev2", "username": "gate01", "password": "s3cret"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"username": "gate01"}, http.StatusBadRequest},
	}
	for _, tt := range cases {
		resp := postJSON(t, r, "/auth/login", tt.payload)
		if resp.Code != tt.want {
			t.Fatalf("%s: status = %d, want %d", tt.name, resp.Code, tt.want)
		}
	}
}

func TestLoginRejectsInactiveStaff(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r, ac := newAuthRouter(t)
	seedStaff(t, ac.db, "ev1", "gate01", models.RoleGate, "s3cret", false)

	resp := postJSON(t, r, "/auth/login", map[string]string{
		"event_key": "ev1",
		"username":  "gate01",
		"password":  "s3cret",
	})
	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
	body := decodeResponse(t, resp)
	if body.Message != "staff inactive" {
		t.Fatalf("message = %q", body.Message)
	}
}
