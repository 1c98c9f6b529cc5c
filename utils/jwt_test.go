package utils

import (
	"testing"
	"time"

	"github.com/arcadelab/staff-server/models"
)

func TestStaffTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	regNo := "AB12"
	access := models.AccessFlags{CanGate: true, StaffRegNo: &regNo}
	token, err := GenerateStaffToken("staff-1", "gate01", models.RoleGate, "ev1", access, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := ParseStaffToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.StaffID != "staff-1" || claims.Username != "gate01" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.EventKey != "ev1" {
		t.Fatalf("event_key = %q, want ev1", claims.EventKey)
	}
	if !claims.Access.CanGate || claims.Access.StaffRegNo == nil || *claims.Access.StaffRegNo != "AB12" {
		t.Fatalf("access = %+v", claims.Access)
	}
}

func TestParseStaffTokenRejectsTampered(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateStaffToken("staff-1", "gate01", models.RoleGate, "ev1", models.AccessFlags{}, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := ParseStaffToken(token + "x"); err == nil {
		t.Fatal("tampered token should not parse")
	}
	if _, err := ParseStaffToken("not-a-jwt"); err == nil {
		t.Fatal("garbage token should not parse")
	}
}

func TestParseStaffTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateStaffToken("staff-1", "gate01", models.RoleGate, "ev1", models.AccessFlags{}, -time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := ParseStaffToken(token); err == nil {
		t.Fatal("expired token should not parse")
	}
}
