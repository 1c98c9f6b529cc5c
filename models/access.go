package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessFlags is the capability set resolved for a staff member on an event.
type AccessFlags struct {
	CanGate              bool    `json:"can_gate"`
	CanGame              bool    `json:"can_game"`
	CanPrize             bool    `json:"can_prize"`
	CanStaffCheckin      bool    `json:"can_staff_checkin"`
	CanManageCheckinDays bool    `json:"can_manage_checkin_days"`
	StaffRegNo           *string `json:"staff_reg_no"`
}

// StaffAccess is an explicit per-staff capability grant. When a row exists,
// its flags replace the role defaults wholesale.
type StaffAccess struct {
	ID                   string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey             string    `gorm:"size:64;not null;uniqueIndex:uniq_staff_access,priority:1" json:"event_key"`
	StaffID              string    `gorm:"type:char(36);not null;uniqueIndex:uniq_staff_access,priority:2" json:"staff_id"`
	StaffRegNo           *string   `gorm:"size:32" json:"staff_reg_no"`
	CanGate              bool      `gorm:"default:false" json:"can_gate"`
	CanGame              bool      `gorm:"default:false" json:"can_game"`
	CanPrize             bool      `gorm:"default:false" json:"can_prize"`
	CanStaffCheckin      bool      `gorm:"default:false" json:"can_staff_checkin"`
	CanManageCheckinDays bool      `gorm:"default:false" json:"can_manage_checkin_days"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (StaffAccess) TableName() string { return "staff_access" }

func (a *StaffAccess) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// DefaultAccessForRole maps a role to its default capability set.
func DefaultAccessForRole(role string) AccessFlags {
	switch strings.ToUpper(role) {
	case RoleStaff:
		return AccessFlags{CanStaffCheckin: true}
	case RoleGate:
		return AccessFlags{CanGate: true}
	case RoleGame:
		return AccessFlags{CanGame: true, CanPrize: true}
	case RolePrize:
		return AccessFlags{CanPrize: true}
	default:
		return AccessFlags{}
	}
}

// ResolveStaffAccess returns the capability set for a staff member: the
// explicit grant row when one exists, role defaults otherwise.
func ResolveStaffAccess(db *gorm.DB, eventKey, staffID, role string) (AccessFlags, error) {
	fallback := DefaultAccessForRole(role)
	if staffID == "" {
		return fallback, nil
	}

	var grant StaffAccess
	err := db.Where("event_key = ? AND staff_id = ?", eventKey, staffID).Take(&grant).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return fallback, nil
		}
		return fallback, err
	}

	return AccessFlags{
		CanGate:              grant.CanGate,
		CanGame:              grant.CanGame,
		CanPrize:             grant.CanPrize,
		CanStaffCheckin:      grant.CanStaffCheckin,
		CanManageCheckinDays: grant.CanManageCheckinDays,
		StaffRegNo:           grant.StaffRegNo,
	}, nil
}
