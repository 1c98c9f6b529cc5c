package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registration check-in statuses. PENDING is the initial state; gate staff
// move registrations to CHECKED_IN or REJECTED.
const (
	CheckinStatusPending   = "PENDING"
	CheckinStatusCheckedIn = "CHECKED_IN"
	CheckinStatusRejected  = "REJECTED"
)

// Registration is an attendee record. Its checkin_status gates wallet spend
// when check-in enforcement is active.
type Registration struct {
	ID                string     `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey          string     `gorm:"size:64;not null;index" json:"event_key"`
	Name              string     `gorm:"size:128" json:"name"`
	Email             string     `gorm:"size:255" json:"email"`
	Contact           string     `gorm:"size:64" json:"contact"`
	RegNo             string     `gorm:"size:32" json:"reg_no"`
	Category          string     `gorm:"size:32" json:"category"`
	Status            string     `gorm:"size:16" json:"status"`
	CheckinStatus     string     `gorm:"size:16;not null;default:PENDING" json:"checkin_status"`
	CheckinAt         *time.Time `json:"checkin_at"`
	CheckinByUsername *string    `gorm:"size:64" json:"checkin_by_username"`
	RejectReason      *string    `gorm:"size:255" json:"reject_reason"`
	RejectedAt        *time.Time `json:"rejected_at"`
	RejectedBy        *string    `gorm:"type:char(36)" json:"rejected_by"`
	PlanID            *string    `gorm:"type:char(36)" json:"plan_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RegistrationMember is one team member under a registration.
type RegistrationMember struct {
	ID             string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey       string    `gorm:"size:64;not null;index" json:"event_key"`
	RegistrationID string    `gorm:"type:char(36);not null;index" json:"registration_id"`
	Name           string    `gorm:"size:128" json:"name"`
	Email          string    `gorm:"size:255" json:"email"`
	Contact        string    `gorm:"size:64" json:"contact"`
	RegNo          string    `gorm:"size:32" json:"reg_no"`
	Position       int       `gorm:"default:0" json:"position"`
	CreatedAt      time.Time `json:"created_at"`
}

func (m *RegistrationMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Plan is the registration plan lookup (code + title only, for display).
type Plan struct {
	ID       string `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey string `gorm:"size:64;not null;index" json:"event_key"`
	Code     string `gorm:"size:32" json:"code"`
	Title    string `gorm:"size:128" json:"title"`
}

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ApproveCheckin marks a registration CHECKED_IN, stamps the acting staff and
// appends an audit event. Returns nil when the registration does not exist.
// The update is unconditional: a racing approve/reject ends last-write-wins.
func ApproveCheckin(db *gorm.DB, eventKey, regID, staffID, staffUsername string) (*Registration, error) {
	var reg Registration
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&Registration{}).
			Where("id = ? AND event_key = ?", regID, eventKey).
			Updates(map[string]interface{}{
				"checkin_status":      CheckinStatusCheckedIn,
				"checkin_at":          now,
				"checkin_by_username": staffUsername,
				"updated_at":          now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("id = ?", regID).Take(&reg).Error; err != nil {
			return err
		}
		return appendAuditEvent(tx, eventKey, staffID, staffUsername, "CHECKIN_APPROVE", regID,
			map[string]interface{}{"reg_id": regID})
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

// RejectCheckin marks a registration REJECTED with an optional reason (empty
// string stored as NULL), stamps the acting staff and appends an audit event.
func RejectCheckin(db *gorm.DB, eventKey, regID, staffID, staffUsername, reason string) (*Registration, error) {
	var storedReason *string
	if reason != "" {
		storedReason = &reason
	}

	var reg Registration
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		res := tx.Model(&Registration{}).
			Where("id = ? AND event_key = ?", regID, eventKey).
			Updates(map[string]interface{}{
				"checkin_status": CheckinStatusRejected,
				"reject_reason":  storedReason,
				"rejected_at":    now,
				"rejected_by":    staffID,
				"updated_at":     now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("id = ?", regID).Take(&reg).Error; err != nil {
			return err
		}
		meta := map[string]interface{}{"reg_id": regID}
		if storedReason != nil {
			meta["reason"] = *storedReason
		}
		return appendAuditEvent(tx, eventKey, staffID, staffUsername, "CHECKIN_REJECT", regID, meta)
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &reg, nil
}

func appendAuditEvent(tx *gorm.DB, eventKey, staffID, staffUsername, action, entityID string, meta map[string]interface{}) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return tx.Create(&StaffAuditEvent{
		EventKey:      eventKey,
		StaffID:       staffID,
		StaffUsername: staffUsername,
		Action:        action,
		EntityID:      entityID,
		Meta:          string(metaJSON),
	}).Error
}
