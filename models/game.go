package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game is an arcade game configuration used by GAME staff terminals.
type Game struct {
	ID                  string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey            string    `gorm:"size:64;not null;index" json:"event_key"`
	Name                string    `gorm:"size:128;not null" json:"name"`
	DefaultDebitAmount  int64     `gorm:"default:0" json:"default_debit_amount"`
	AllowedDebitAmounts string    `gorm:"size:255" json:"allowed_debit_amounts"`
	IsActive            bool      `gorm:"default:true" json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// RewardPreset is a preconfigured TICKETS credit button for a game.
type RewardPreset struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	EventKey  string    `gorm:"size:64;not null;index" json:"event_key"`
	GameID    string    `gorm:"type:char(36);not null;index" json:"game_id"`
	Label     string    `gorm:"size:64;not null" json:"label"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"size:8;not null;default:TICKETS" json:"currency"`
	SortOrder int       `gorm:"default:0" json:"sort_order"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *RewardPreset) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ActiveGames lists an event's active games by name.
func ActiveGames(db *gorm.DB, eventKey string) ([]Game, error) {
	var games []Game
	err := db.Where("event_key = ? AND is_active = ?", eventKey, true).
		Order("name ASC").
		Find(&games).Error
	return games, err
}

// ActivePresetsByGame lists a game's active TICKETS presets in display order.
func ActivePresetsByGame(db *gorm.DB, eventKey, gameID string) ([]RewardPreset, error) {
	var presets []RewardPreset
	err := db.Where("event_key = ? AND game_id = ? AND is_active = ? AND currency = ?",
		eventKey, gameID, true, CurrencyTickets).
		Order("sort_order ASC, label ASC").
		Find(&presets).Error
	return presets, err
}
