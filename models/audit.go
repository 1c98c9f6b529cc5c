package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StaffAuditEvent is an append-only record of a staff action against an
// entity (currently gate approve/reject). Meta holds a JSON object.
type StaffAuditEvent struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey      string    `gorm:"size:64;not null;index" json:"event_key"`
	StaffID       string    `gorm:"type:char(36)" json:"staff_id"`
	StaffUsername string    `gorm:"size:64" json:"staff_username"`
	Action        string    `gorm:"size:32;not null" json:"action"`
	EntityID      string    `gorm:"type:char(36);index" json:"entity_id"`
	Meta          string    `gorm:"type:text" json:"meta"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e *StaffAuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
