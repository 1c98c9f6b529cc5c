package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/arcadelab/staff-server/config"
	"github.com/arcadelab/staff-server/middleware"
	"github.com/arcadelab/staff-server/models"
	"github.com/arcadelab/staff-server/utils"
)

// WalletController serves wallet lookups and the staff transaction endpoints
// (game debits, ticket rewards, prize redemptions).
type WalletController struct {
	db *gorm.DB
}

// NewWalletController creates a new controller instance.
func NewWalletController(db *gorm.DB) *WalletController {
	return &WalletController{db: db}
}

// Lookup resolves a scanned wallet code to the wallet summary, registrant
// identity, recent transactions and the team roster. Member wallets get the
// primary registrant injected first.
func (w *WalletController) Lookup(ctx *gin.Context) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	code := strings.TrimSpace(ctx.Query("code"))
	if code == "" {
		utils.Error(ctx, http.StatusBadRequest, 40010, "code required")
		return
	}

	item, err := models.WalletLookupByCode(w.db, claims.EventKey, code)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to look up wallet")
		return
	}
	if item == nil {
		utils.Success(ctx, gin.H{"item": nil})
		return
	}

	recent, err := models.WalletRecentTxns(w.db, claims.EventKey, item.WalletID, config.Get().RecentTxnLimit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to load recent transactions")
		return
	}

	team, err := models.TeamMembers(w.db, claims.EventKey, item.RegID, item.MemberID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load team members")
		return
	}

	if item.MemberID != nil {
		primary, err := models.PrimaryRegistrant(w.db, claims.EventKey, item.RegID)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load primary registrant")
			return
		}
		if primary != nil {
			team = append([]models.TeamMember{*primary}, team...)
		}
	}

	utils.Success(ctx, gin.H{
		"item":         item,
		"recent":       recent,
		"team_members": team,
	})
}

type txnRequest struct {
	WalletID string  `json:"wallet_id"`
	Amount   int64   `json:"amount"`
	GameID   *string `json:"game_id"`
	PresetID *string `json:"preset_id"`
	ActionID string  `json:"action_id"`
	Reason   string  `json:"reason"`
	Note     string  `json:"note"`
}

// Debit charges TOKENS for a game play.
func (w *WalletController) Debit(ctx *gin.Context) {
	w.applyTxn(ctx, models.TxnTypeDebit, models.CurrencyTokens, "PLAY", true, false)
}

// Reward credits TICKETS won at a game, optionally via a reward preset.
// Also served on the legacy /txns/credit alias.
func (w *WalletController) Reward(ctx *gin.Context) {
	w.applyTxn(ctx, models.TxnTypeCredit, models.CurrencyTickets, "REWARD", true, true)
}

// PrizeRedeem debits TICKETS for a prize redemption.
func (w *WalletController) PrizeRedeem(ctx *gin.Context) {
	w.applyTxn(ctx, models.TxnTypeDebit, models.CurrencyTickets, "PRIZE_REDEMPTION", false, false)
}

func (w *WalletController) applyTxn(ctx *gin.Context, txnType, currency, defaultReason string, allowGame, allowPreset bool) {
	claims, ok := middleware.StaffClaims(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req txnRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request body")
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultReason
	}

	in := models.TxnInput{
		EventKey:         claims.EventKey,
		WalletID:         strings.TrimSpace(req.WalletID),
		Type:             txnType,
		Amount:           req.Amount,
		Currency:         currency,
		Reason:           utils.SanitizeText(reason),
		Note:             utils.SanitizeText(strings.TrimSpace(req.Note)),
		ActionID:         strings.TrimSpace(req.ActionID),
		StaffID:          claims.StaffID,
		StaffUsername:    claims.Username,
		EnforceCheckedIn: true,
	}
	if allowGame {
		in.GameID = req.GameID
	}
	if allowPreset {
		in.PresetID = req.PresetID
	}

	txn, err := models.ApplyWalletTxn(w.db, in)
	if err != nil {
		status, code := txnErrorStatus(err)
		utils.Error(ctx, status, code, err.Error())
		return
	}

	utils.Success(ctx, gin.H{"item": txn})
}

func txnErrorStatus(err error) (int, int) {
	var notCheckedIn *models.NotCheckedInError
	switch {
	case errors.Is(err, models.ErrInvalidTxnType),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidCurrency),
		errors.Is(err, models.ErrActionIDRequired),
		errors.Is(err, models.ErrReasonRequired):
		return http.StatusBadRequest, 40012
	case errors.Is(err, models.ErrWalletNotFound):
		return http.StatusBadRequest, 40013
	case errors.Is(err, models.ErrInsufficientBalance):
		return http.StatusBadRequest, 40014
	case errors.As(err, &notCheckedIn):
		return http.StatusBadRequest, 40015
	default:
		return http.StatusInternalServerError, 50014
	}
}
