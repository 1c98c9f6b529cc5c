package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Staff roles. STAFF is the permanent-staff role and bypasses role checks at
// the route layer; the other roles map to capability defaults in access.go.
const (
	RoleStaff = "STAFF"
	RoleGate  = "GATE"
	RoleGame  = "GAME"
	RolePrize = "PRIZE"
)

// Staff represents a staff account scoped to a single event. Passwords are
// stored as bcrypt hashes only.
type Staff struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey     string    `gorm:"size:64;not null;uniqueIndex:uniq_staff_username,priority:1" json:"event_key"`
	Username     string    `gorm:"size:64;not null;uniqueIndex:uniq_staff_username,priority:2" json:"username"`
	Email        string    `gorm:"size:255" json:"email"`
	FullName     string    `gorm:"size:128" json:"full_name"`
	Role         string    `gorm:"size:16;not null" json:"role"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Staff) TableName() string { return "staff" }

// BeforeCreate assigns a UUID primary key when none is provided.
func (s *Staff) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// FindStaffByUsername looks up an event's staff account case-insensitively.
func FindStaffByUsername(db *gorm.DB, eventKey, username string) (*Staff, error) {
	var staff Staff
	err := db.Where("event_key = ? AND lower(username) = lower(?)", eventKey, username).Take(&staff).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}
