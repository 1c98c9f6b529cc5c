package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction types and currencies for the wallet ledger.
const (
	TxnTypeCredit = "CREDIT"
	TxnTypeDebit  = "DEBIT"

	CurrencyTokens  = "TOKENS"
	CurrencyTickets = "TICKETS"
)

// Wallet is the spendable balance pair for one registration (or one team
// member within it). Balances are never negative and are mutated only by
// ApplyWalletTxn.
type Wallet struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey            string    `gorm:"size:64;not null;uniqueIndex:uniq_wallet_code,priority:1" json:"event_key"`
	WalletCode          string    `gorm:"size:64;not null;uniqueIndex:uniq_wallet_code,priority:2" json:"wallet_code"`
	RegistrationID      string    `gorm:"type:char(36);not null;index" json:"registration_id"`
	MemberID            *string   `gorm:"type:char(36);index" json:"member_id"`
	Balance             int64     `gorm:"not null;default:0" json:"balance"`
	RewardPointsBalance int64     `gorm:"not null;default:0" json:"reward_points_balance"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// WalletTransaction is one immutable ledger entry. Rows are append-only:
// reversal is modeled as a new row pointing back via ReversedTxnID.
type WalletTransaction struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey      string    `gorm:"size:64;not null;uniqueIndex:uniq_txn_action,priority:1" json:"event_key"`
	WalletID      string    `gorm:"type:char(36);not null;index" json:"wallet_id"`
	Type          string    `gorm:"size:8;not null" json:"type"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"size:8;not null" json:"currency"`
	Reason        string    `gorm:"size:512;not null" json:"reason"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	ActorType     string    `gorm:"size:16;not null;default:STAFF" json:"actor_type"`
	ActorID       string    `gorm:"type:char(36)" json:"actor_id"`
	ActorUsername string    `gorm:"size:64" json:"actor_username"`
	GameID        *string   `gorm:"type:char(36)" json:"game_id"`
	PresetID      *string   `gorm:"type:char(36)" json:"preset_id"`
	ActionID      string    `gorm:"size:128;not null;uniqueIndex:uniq_txn_action,priority:2" json:"action_id"`
	ReversedTxnID *string   `gorm:"type:char(36)" json:"reversed_txn_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// WalletLookup is the flattened wallet + registrant view returned to gate and
// game terminals when a wallet code is scanned.
type WalletLookup struct {
	WalletID            string     `json:"wallet_id"`
	WalletCode          string     `json:"wallet_code"`
	Balance             int64      `json:"balance"`
	RewardPointsBalance int64      `json:"reward_points_balance"`
	EventKey            string     `json:"event_key"`
	MemberID            *string    `json:"member_id"`
	RegID               string     `json:"reg_id"`
	Category            string     `json:"category"`
	RegStatus           string     `json:"reg_status"`
	CheckinStatus       string     `json:"checkin_status"`
	CheckinAt           *time.Time `json:"checkin_at"`
	RejectReason        *string    `json:"reject_reason"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Contact             string     `json:"contact"`
	RegNo               string     `json:"reg_no"`
	PlanCode            *string    `json:"plan_code"`
	PlanTitle           *string    `json:"plan_title"`
}

// WalletLookupByCode resolves a scanned wallet code to the wallet, its linked
// registration and the holder's identity. Member wallets surface the member's
// details, otherwise the registration holder's.
func WalletLookupByCode(db *gorm.DB, eventKey, code string) (*WalletLookup, error) {
	var row WalletLookup
	err := db.Table("wallets AS w").
		Select(`w.id AS wallet_id, w.wallet_code, w.balance, w.reward_points_balance,
			w.event_key, w.member_id,
			r.id AS reg_id, r.category, r.status AS reg_status, r.checkin_status,
			r.checkin_at, r.reject_reason,
			COALESCE(m.name, r.name) AS name,
			COALESCE(m.email, r.email) AS email,
			COALESCE(m.contact, r.contact) AS contact,
			COALESCE(m.reg_no, r.reg_no) AS reg_no,
			p.code AS plan_code, p.title AS plan_title`).
		Joins("JOIN registrations r ON r.id = w.registration_id").
		Joins("LEFT JOIN registration_members m ON m.id = w.member_id").
		Joins("LEFT JOIN plans p ON p.id = r.plan_id").
		Where("w.event_key = ? AND w.wallet_code = ?", eventKey, code).
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// WalletRecentTxns returns the newest ledger entries for display context.
func WalletRecentTxns(db *gorm.DB, eventKey, walletID string, limit int) ([]WalletTransaction, error) {
	if limit <= 0 {
		limit = 3
	}
	var txns []WalletTransaction
	err := db.Where("event_key = ? AND wallet_id = ?", eventKey, walletID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

// TeamMember is one roster entry in a wallet lookup response.
type TeamMember struct {
	MemberID            *string `json:"member_id"`
	Name                string  `json:"name"`
	Contact             string  `json:"contact"`
	RegNo               string  `json:"reg_no"`
	Email               string  `json:"email"`
	Position            int     `json:"position"`
	WalletCode          *string `json:"wallet_code"`
	Balance             *int64  `json:"balance"`
	RewardPointsBalance *int64  `json:"reward_points_balance"`
	IsPrimary           bool    `json:"is_primary"`
	CheckinStatus       *string `json:"checkin_status"`
}

// TeamMembers lists a registration's team members with their wallets, ordered
// by position. excludeMemberID drops the scanned member from the roster.
func TeamMembers(db *gorm.DB, eventKey, regID string, excludeMemberID *string) ([]TeamMember, error) {
	q := db.Table("registration_members AS m").
		Select(`m.id AS member_id, m.name, m.contact, m.reg_no, m.email, m.position,
			w.wallet_code, w.balance, w.reward_points_balance,
			CASE WHEN w.id IS NOT NULL THEN r.checkin_status ELSE NULL END AS checkin_status`).
		Joins("LEFT JOIN wallets w ON w.member_id = m.id AND w.event_key = ?", eventKey).
		Joins("LEFT JOIN registrations r ON r.id = m.registration_id").
		Where("m.registration_id = ? AND m.event_key = ?", regID, eventKey).
		Order("m.position ASC")
	if excludeMemberID != nil && *excludeMemberID != "" {
		q = q.Where("m.id <> ?", *excludeMemberID)
	}

	var members []TeamMember
	if err := q.Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// PrimaryRegistrant returns the registration holder as a roster entry, used to
// prepend the holder when a member wallet was scanned.
func PrimaryRegistrant(db *gorm.DB, eventKey, regID string) (*TeamMember, error) {
	var row TeamMember
	err := db.Table("registrations AS r").
		Select(`r.name, r.contact, r.reg_no, r.email,
			w.wallet_code, w.balance, w.reward_points_balance,
			r.checkin_status`).
		Joins("LEFT JOIN wallets w ON w.registration_id = r.id AND w.member_id IS NULL AND w.event_key = ?", eventKey).
		Where("r.id = ? AND r.event_key = ?", regID, eventKey).
		Take(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	row.IsPrimary = true
	return &row, nil
}
