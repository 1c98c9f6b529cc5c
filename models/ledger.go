package models

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Validation errors, rejected before any transaction begins.
var (
	ErrInvalidTxnType   = errors.New("type must be CREDIT or DEBIT")
	ErrInvalidAmount    = errors.New("amount must be > 0")
	ErrInvalidCurrency  = errors.New("currency must be TOKENS or TICKETS")
	ErrActionIDRequired = errors.New("action_id required")
	ErrReasonRequired   = errors.New("reason required")
)

// Precondition errors, raised inside the transaction and rolling it back.
var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// errDuplicateAction signals that another transaction with the same action_id
// committed while ours was in flight; the caller returns the winner's row.
var errDuplicateAction = errors.New("duplicate action_id")

// NotCheckedInError is returned when check-in enforcement is active and the
// wallet's registration is not CHECKED_IN. It carries the observed status.
type NotCheckedInError struct {
	Status string
}

func (e *NotCheckedInError) Error() string {
	status := e.Status
	if status == "" {
		status = "unknown"
	}
	return fmt.Sprintf("not checked-in (status=%s)", status)
}

// TxnInput describes one ledger mutation request.
type TxnInput struct {
	EventKey         string
	WalletID         string
	Type             string // CREDIT | DEBIT
	Amount           int64  // unsigned magnitude, > 0
	Currency         string // TOKENS | TICKETS
	Reason           string
	Note             string // optional free text, folded into reason
	GameID           *string
	PresetID         *string
	ActionID         string // client-supplied idempotency key, unique per event
	StaffID          string
	StaffUsername    string
	EnforceCheckedIn bool
}

func signedDelta(txnType string, amount int64) int64 {
	if txnType == TxnTypeDebit {
		return -amount
	}
	return amount
}

// ApplyWalletTxn applies a CREDIT or DEBIT to a wallet and appends the ledger
// row, all inside one database transaction:
//
//  1. replayed action_ids return the original row untouched;
//  2. the wallet row is locked for update, serializing concurrent mutations
//     of the same wallet;
//  3. when enforcement is on, the linked registration must be CHECKED_IN;
//  4. the balance floor is enforced: a resulting negative balance aborts;
//  5. the wallet balance and the transaction row commit together.
//
// A failed attempt leaves no idempotency record, so a legitimate retry with
// the same action_id may proceed.
func ApplyWalletTxn(db *gorm.DB, in TxnInput) (*WalletTransaction, error) {
	if in.Type != TxnTypeCredit && in.Type != TxnTypeDebit {
		return nil, ErrInvalidTxnType
	}
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if in.Currency != CurrencyTokens && in.Currency != CurrencyTickets {
		return nil, ErrInvalidCurrency
	}
	if strings.TrimSpace(in.ActionID) == "" {
		return nil, ErrActionIDRequired
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if note := strings.TrimSpace(in.Note); note != "" {
		reason = reason + " — " + note
	}

	delta := signedDelta(in.Type, in.Amount)

	var out *WalletTransaction
	err := db.Transaction(func(tx *gorm.DB) error {
		// Idempotency: an action_id already committed for this event returns
		// the original row with no balance mutation.
		var existing WalletTransaction
		err := tx.Where("event_key = ? AND action_id = ?", in.EventKey, in.ActionID).
			Take(&existing).Error
		if err == nil {
			out = &existing
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		// Lock the wallet row so concurrent transactions on the same wallet
		// execute strictly one after the other. SQLite (used in tests) has no
		// FOR UPDATE grammar and serializes writers at the database level.
		q := tx.Where("id = ? AND event_key = ?", in.WalletID, in.EventKey)
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var wallet Wallet
		if err := q.Take(&wallet).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrWalletNotFound
			}
			return err
		}

		if in.EnforceCheckedIn {
			var reg Registration
			err := tx.Select("checkin_status").
				Where("id = ? AND event_key = ?", wallet.RegistrationID, in.EventKey).
				Take(&reg).Error
			if err != nil && err != gorm.ErrRecordNotFound {
				return err
			}
			if reg.CheckinStatus != CheckinStatusCheckedIn {
				return &NotCheckedInError{Status: reg.CheckinStatus}
			}
		}

		balanceColumn := "balance"
		current := wallet.Balance
		if in.Currency == CurrencyTickets {
			balanceColumn = "reward_points_balance"
			current = wallet.RewardPointsBalance
		}
		next := current + delta
		if next < 0 {
			return ErrInsufficientBalance
		}

		if err := tx.Model(&wallet).Update(balanceColumn, next).Error; err != nil {
			return err
		}

		txn := WalletTransaction{
			EventKey:      in.EventKey,
			WalletID:      wallet.ID,
			Type:          in.Type,
			Amount:        in.Amount,
			Currency:      in.Currency,
			Reason:        reason,
			BalanceAfter:  next,
			ActorType:     "STAFF",
			ActorID:       in.StaffID,
			ActorUsername: in.StaffUsername,
			GameID:        in.GameID,
			PresetID:      in.PresetID,
			ActionID:      in.ActionID,
		}
		if err := tx.Create(&txn).Error; err != nil {
			// A racing request with the same action_id won the insert; roll
			// back our balance change and hand back the committed row.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errDuplicateAction
			}
			return err
		}

		out = &txn
		return nil
	})
	if err != nil {
		if errors.Is(err, errDuplicateAction) {
			var winner WalletTransaction
			if err := db.Where("event_key = ? AND action_id = ?", in.EventKey, in.ActionID).
				Take(&winner).Error; err != nil {
				return nil, err
			}
			return &winner, nil
		}
		return nil, err
	}
	return out, nil
}
