package models

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Staff check-in errors.
var (
	ErrRegNoRequired   = errors.New("reg_no required")
	ErrInvalidDate     = errors.New("checkin_date must be YYYY-MM-DD")
	ErrNoActiveDay     = errors.New("No active Staff Checkin day found")
	ErrDayInactive     = errors.New("Selected day is inactive")
	ErrUnknownStaffReg = errors.New("Registration number not found in predefined member list")
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// errDuplicateDay signals that a racing request created the day between our
// lookup and our insert; the upsert reruns and takes the update branch.
var errDuplicateDay = errors.New("duplicate checkin day")

// CheckinDay is a date-scoped configuration row gating staff attendance
// scans. One row per (event, date); days are deactivated, never deleted.
type CheckinDay struct {
	ID               string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey         string    `gorm:"size:64;not null;uniqueIndex:uniq_checkin_day,priority:1" json:"event_key"`
	CheckinDate      string    `gorm:"size:10;not null;uniqueIndex:uniq_checkin_day,priority:2" json:"checkin_date"`
	Title            *string   `gorm:"size:128" json:"title"`
	Note             *string   `gorm:"size:255" json:"note"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedByStaffID *string   `gorm:"type:char(36)" json:"created_by_staff_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (d *CheckinDay) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// StaffCheckin records that a staff member attended a checkin day. The
// natural key is (event, day, staff_reg_no); a rescan refreshes the stamp.
type StaffCheckin struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey            string    `gorm:"size:64;not null;uniqueIndex:uniq_staff_checkin,priority:1" json:"event_key"`
	DayID               string    `gorm:"type:char(36);not null;uniqueIndex:uniq_staff_checkin,priority:2" json:"day_id"`
	StaffRegNo          string    `gorm:"size:32;not null;uniqueIndex:uniq_staff_checkin,priority:3" json:"staff_reg_no"`
	CheckedInAt         time.Time `json:"checked_in_at"`
	CheckedInByStaffID  *string   `gorm:"type:char(36)" json:"checked_in_by_staff_id"`
	CheckedInByUsername *string   `gorm:"size:64" json:"checked_in_by_username"`
	Source              string    `gorm:"size:16;default:APP_SCAN" json:"source"`
	CreatedAt           time.Time `json:"created_at"`
}

func (c *StaffCheckin) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// StaffMember is the predefined roster of scannable staff registration
// numbers. Scans are only accepted for active members.
type StaffMember struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey  string    `gorm:"size:64;not null;uniqueIndex:uniq_staff_member,priority:1" json:"event_key"`
	RegNo     string    `gorm:"size:32;not null;uniqueIndex:uniq_staff_member,priority:2" json:"reg_no"`
	Name      string    `gorm:"size:128" json:"name"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *StaffMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// NormalizeRegNo canonicalizes a scanned registration number before lookup
// and storage.
func NormalizeRegNo(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// CheckinDaysList lists an event's checkin days, newest date first.
func CheckinDaysList(db *gorm.DB, eventKey string, includeInactive bool) ([]CheckinDay, error) {
	q := db.Where("event_key = ?", eventKey)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var days []CheckinDay
	err := q.Order("checkin_date DESC").Find(&days).Error
	return days, err
}

// CreateCheckinDay upserts a checkin day on its (event, date) natural key.
// An existing day is reactivated; title and note only overwrite when the
// caller supplied non-empty values.
func CreateCheckinDay(db *gorm.DB, eventKey, checkinDate, title, note string, createdByStaffID string) (*CheckinDay, error) {
	dateText := strings.TrimSpace(checkinDate)
	if !dateRe.MatchString(dateText) {
		return nil, ErrInvalidDate
	}
	title = strings.TrimSpace(title)
	note = strings.TrimSpace(note)

	var day CheckinDay
	upsert := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			err := tx.Where("event_key = ? AND checkin_date = ?", eventKey, dateText).Take(&day).Error
			if err == gorm.ErrRecordNotFound {
				day = CheckinDay{
					EventKey:    eventKey,
					CheckinDate: dateText,
					IsActive:    true,
				}
				if title != "" {
					day.Title = &title
				}
				if note != "" {
					day.Note = &note
				}
				if createdByStaffID != "" {
					day.CreatedByStaffID = &createdByStaffID
				}
				if err := tx.Create(&day).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						return errDuplicateDay
					}
					return err
				}
				return nil
			}
			if err != nil {
				return err
			}

			updates := map[string]interface{}{"is_active": true, "updated_at": time.Now()}
			if title != "" {
				updates["title"] = title
				day.Title = &title
			}
			if note != "" {
				updates["note"] = note
				day.Note = &note
			}
			day.IsActive = true
			return tx.Model(&CheckinDay{}).Where("id = ?", day.ID).Updates(updates).Error
		})
	}

	err := upsert()
	if errors.Is(err, errDuplicateDay) {
		// The racing create committed first and is visible to a fresh
		// transaction; rerun so the lookup hits and the update branch runs.
		day = CheckinDay{}
		err = upsert()
	}
	if err != nil {
		return nil, err
	}
	return &day, nil
}

// SetCheckinDayActive flips a day's active flag. Returns nil when the day
// does not exist.
func SetCheckinDayActive(db *gorm.DB, eventKey, dayID string, isActive bool) (*CheckinDay, error) {
	res := db.Model(&CheckinDay{}).
		Where("id = ? AND event_key = ?", dayID, eventKey).
		Updates(map[string]interface{}{"is_active": isActive, "updated_at": time.Now()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return FindDayByID(db, eventKey, dayID)
}

// FindDayByID fetches a day regardless of its active flag.
func FindDayByID(db *gorm.DB, eventKey, dayID string) (*CheckinDay, error) {
	var day CheckinDay
	err := db.Where("id = ? AND event_key = ?", dayID, eventKey).Take(&day).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &day, nil
}

// FindActiveDayByDate resolves the active day for a calendar date.
func FindActiveDayByDate(db *gorm.DB, eventKey, dateText string) (*CheckinDay, error) {
	var day CheckinDay
	err := db.Where("event_key = ? AND checkin_date = ? AND is_active = ?", eventKey, dateText, true).
		Take(&day).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &day, nil
}

// FindStaffMemberByRegNo looks up an active roster member by normalized
// registration number. Returns nil when the number is unknown or inactive.
func FindStaffMemberByRegNo(db *gorm.DB, eventKey, regNo string) (*StaffMember, error) {
	normalized := NormalizeRegNo(regNo)
	if normalized == "" {
		return nil, nil
	}
	var member StaffMember
	err := db.Where("event_key = ? AND reg_no = ? AND is_active = ?", eventKey, normalized, true).
		Take(&member).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ScanStaffCheckin upserts an attendance row on its natural key: the first
// scan of a day inserts, any later scan refreshes the stamp and actor instead
// of duplicating.
func ScanStaffCheckin(db *gorm.DB, eventKey, dayID, regNo, staffID, staffUsername string) (*StaffCheckin, error) {
	normalized := NormalizeRegNo(regNo)
	if normalized == "" {
		return nil, ErrRegNoRequired
	}

	now := time.Now()
	row := StaffCheckin{
		EventKey:    eventKey,
		DayID:       dayID,
		StaffRegNo:  normalized,
		CheckedInAt: now,
		Source:      "APP_SCAN",
	}
	if staffID != "" {
		row.CheckedInByStaffID = &staffID
	}
	if staffUsername != "" {
		row.CheckedInByUsername = &staffUsername
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_key"}, {Name: "day_id"}, {Name: "staff_reg_no"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"checked_in_at":          now,
			"checked_in_by_staff_id": row.CheckedInByStaffID,
			"checked_in_by_username": row.CheckedInByUsername,
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, err
	}

	// Re-read by natural key: on conflict the persisted row keeps its
	// original id, not the one generated above.
	var persisted StaffCheckin
	if err := db.Where("event_key = ? AND day_id = ? AND staff_reg_no = ?", eventKey, dayID, normalized).
		Take(&persisted).Error; err != nil {
		return nil, err
	}
	return &persisted, nil
}

// MyCheckinRow is one attendance entry in a staff member's own history.
type MyCheckinRow struct {
	ID                  string    `json:"id"`
	DayID               string    `json:"day_id"`
	StaffRegNo          string    `json:"staff_reg_no"`
	StaffName           *string   `json:"staff_name"`
	CheckedInAt         time.Time `json:"checked_in_at"`
	CheckedInByUsername *string   `json:"checked_in_by_username"`
	CheckinDate         string    `json:"checkin_date"`
	Title               *string   `json:"title"`
	Note                *string   `json:"note"`
}

// MyCheckins lists attendance history for one staff registration number.
func MyCheckins(db *gorm.DB, eventKey, staffRegNo string, limit int) ([]MyCheckinRow, error) {
	normalized := NormalizeRegNo(staffRegNo)
	if normalized == "" {
		return []MyCheckinRow{}, nil
	}
	if limit <= 0 {
		limit = 120
	}
	var rows []MyCheckinRow
	err := db.Table("staff_checkins AS c").
		Select(`c.id, c.day_id, c.staff_reg_no, m.name AS staff_name,
			c.checked_in_at, c.checked_in_by_username,
			d.checkin_date, d.title, d.note`).
		Joins("JOIN checkin_days d ON d.id = c.day_id").
		Joins("LEFT JOIN staff_members m ON m.event_key = c.event_key AND m.reg_no = c.staff_reg_no").
		Where("c.event_key = ? AND c.staff_reg_no = ?", eventKey, normalized).
		Order("d.checkin_date DESC, c.checked_in_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DayCheckinRow is one scan entry in a day's attendance listing.
type DayCheckinRow struct {
	ID                  string    `json:"id"`
	StaffRegNo          string    `json:"staff_reg_no"`
	CheckedInAt         time.Time `json:"checked_in_at"`
	CheckedInByUsername *string   `json:"checked_in_by_username"`
	StaffName           *string   `json:"staff_name"`
}

// DayCheckinsList lists all scans recorded against one day.
func DayCheckinsList(db *gorm.DB, eventKey, dayID string) ([]DayCheckinRow, error) {
	var rows []DayCheckinRow
	err := db.Table("staff_checkins AS c").
		Select(`c.id, c.staff_reg_no, c.checked_in_at, c.checked_in_by_username, m.name AS staff_name`).
		Joins("LEFT JOIN staff_members m ON m.event_key = c.event_key AND m.reg_no = c.staff_reg_no").
		Where("c.event_key = ? AND c.day_id = ?", eventKey, dayID).
		Order("c.checked_in_at DESC").
		Find(&rows).Error
	return rows, err
}
