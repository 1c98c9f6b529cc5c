package models

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// hideFirstLookup registers a one-shot query callback that hides all rows
// from the next query scanning into dest's type. It recreates what a losing
// racer sees: the winner's row is committed, but this session's lookup ran
// before that commit.
func hideFirstLookup(t *testing.T, db *gorm.DB, name string, matches func(dest interface{}) bool) {
	t.Helper()
	armed := true
	err := db.Callback().Query().Before("gorm:query").Register(name, func(tx *gorm.DB) {
		if !armed || !matches(tx.Statement.Dest) {
			return
		}
		armed = false
		tx.Statement.AddClause(clause.Where{Exprs: []clause.Expression{gorm.Expr("1 = 0")}})
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Callback().Query().Remove(name); err != nil {
			t.Errorf("remove callback: %v", err)
		}
	})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&Staff{}, &StaffAccess{},
		&Registration{}, &RegistrationMember{}, &Plan{},
		&Wallet{}, &WalletTransaction{},
		&Game{}, &RewardPreset{},
		&CheckinDay{}, &StaffCheckin{}, &StaffMember{},
		&StaffAuditEvent{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedWallet(t *testing.T, db *gorm.DB, eventKey, checkinStatus string, balance, rewardBalance int64) *Wallet {
	t.Helper()
	reg := Registration{
		EventKey:      eventKey,
		Name:          "Alex Tan",
		RegNo:         "R1001",
		Status:        "CONFIRMED",
		CheckinStatus: checkinStatus,
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	wallet := Wallet{
		EventKey:            eventKey,
		WalletCode:          "WC-" + uuid.NewString()[:8],
		RegistrationID:      reg.ID,
		Balance:             balance,
		RewardPointsBalance: rewardBalance,
	}
	if err := db.Create(&wallet).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return &wallet
}

func TestApplyWalletTxnDebitAndReplay(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	in := TxnInput{
		EventKey:         "ev1",
		WalletID:         wallet.ID,
		Type:             TxnTypeDebit,
		Amount:           30,
		Currency:         CurrencyTokens,
		Reason:           "PLAY",
		ActionID:         "a1",
		StaffID:          "staff-1",
		StaffUsername:    "game01",
		EnforceCheckedIn: true,
	}

	first, err := ApplyWalletTxn(db, in)
	if err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if first.BalanceAfter != 70 {
		t.Fatalf("balance_after = %d, want 70", first.BalanceAfter)
	}

	replay, err := ApplyWalletTxn(db, in)
	if err != nil {
		t.Fatalf("replay debit: %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("replay returned a new row: %s != %s", replay.ID, first.ID)
	}

	var got Wallet
	if err := db.Take(&got, "id = ?", wallet.ID).Error; err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if got.Balance != 70 {
		t.Fatalf("wallet balance = %d, want 70 after replay", got.Balance)
	}

	var count int64
	db.Model(&WalletTransaction{}).Where("wallet_id = ?", wallet.ID).Count(&count)
	if count != 1 {
		t.Fatalf("txn count = %d, want 1", count)
	}
}

func TestApplyWalletTxnTicketsCredit(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	txn, err := ApplyWalletTxn(db, TxnInput{
		EventKey:         "ev1",
		WalletID:         wallet.ID,
		Type:             TxnTypeCredit,
		Amount:           5,
		Currency:         CurrencyTickets,
		Reason:           "REWARD",
		ActionID:         "r1",
		EnforceCheckedIn: true,
	})
	if err != nil {
		t.Fatalf("ticket credit: %v", err)
	}
	if txn.BalanceAfter != 5 {
		t.Fatalf("balance_after = %d, want 5", txn.BalanceAfter)
	}

	var got Wallet
	db.Take(&got, "id = ?", wallet.ID)
	if got.RewardPointsBalance != 5 {
		t.Fatalf("reward balance = %d, want 5", got.RewardPointsBalance)
	}
	if got.Balance != 100 {
		t.Fatalf("token balance = %d, want untouched 100", got.Balance)
	}
}

func TestApplyWalletTxnInsufficientBalance(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 20, 0)

	in := TxnInput{
		EventKey:         "ev1",
		WalletID:         wallet.ID,
		Type:             TxnTypeDebit,
		Amount:           50,
		Currency:         CurrencyTokens,
		Reason:           "PLAY",
		ActionID:         "a1",
		EnforceCheckedIn: true,
	}
	if _, err := ApplyWalletTxn(db, in); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	var got Wallet
	db.Take(&got, "id = ?", wallet.ID)
	if got.Balance != 20 {
		t.Fatalf("balance = %d, want unchanged 20", got.Balance)
	}
	var count int64
	db.Model(&WalletTransaction{}).Where("wallet_id = ?", wallet.ID).Count(&count)
	if count != 0 {
		t.Fatalf("txn count = %d, want 0 after rejected debit", count)
	}

	// A failed attempt leaves no idempotency record: the same action_id may
	// legitimately retry with a valid amount.
	in.Amount = 15
	txn, err := ApplyWalletTxn(db, in)
	if err != nil {
		t.Fatalf("retry after rejection: %v", err)
	}
	if txn.BalanceAfter != 5 {
		t.Fatalf("balance_after = %d, want 5", txn.BalanceAfter)
	}
}

func TestApplyWalletTxnEnforcesCheckin(t *testing.T) {
	db := newTestDB(t)

	for _, status := range []string{CheckinStatusPending, CheckinStatusRejected} {
		wallet := seedWallet(t, db, "ev1", status, 100, 0)
		_, err := ApplyWalletTxn(db, TxnInput{
			EventKey:         "ev1",
			WalletID:         wallet.ID,
			Type:             TxnTypeDebit,
			Amount:           10,
			Currency:         CurrencyTokens,
			Reason:           "PLAY",
			ActionID:         uuid.NewString(),
			EnforceCheckedIn: true,
		})
		var notCheckedIn *NotCheckedInError
		if !errors.As(err, &notCheckedIn) {
			t.Fatalf("status %s: err = %v, want NotCheckedInError", status, err)
		}
		if notCheckedIn.Status != status {
			t.Fatalf("reported status = %q, want %q", notCheckedIn.Status, status)
		}

		var got Wallet
		db.Take(&got, "id = ?", wallet.ID)
		if got.Balance != 100 {
			t.Fatalf("status %s: balance mutated to %d", status, got.Balance)
		}
	}
}

func TestApplyWalletTxnSkipsEnforcementWhenOff(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusPending, 100, 0)

	txn, err := ApplyWalletTxn(db, TxnInput{
		EventKey: "ev1",
		WalletID: wallet.ID,
		Type:     TxnTypeDebit,
		Amount:   10,
		Currency: CurrencyTokens,
		Reason:   "PLAY",
		ActionID: "a1",
	})
	if err != nil {
		t.Fatalf("debit without enforcement: %v", err)
	}
	if txn.BalanceAfter != 90 {
		t.Fatalf("balance_after = %d, want 90", txn.BalanceAfter)
	}
}

func TestApplyWalletTxnValidation(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	base := TxnInput{
		EventKey: "ev1",
		WalletID: wallet.ID,
		Type:     TxnTypeDebit,
		Amount:   10,
		Currency: CurrencyTokens,
		Reason:   "PLAY",
		ActionID: "a1",
	}

	cases := []struct {
		name   string
		mutate func(*TxnInput)
		want   error
	}{
		{"bad type", func(in *TxnInput) { in.Type = "TRANSFER" }, ErrInvalidTxnType},
		{"zero amount", func(in *TxnInput) { in.Amount = 0 }, ErrInvalidAmount},
		{"negative amount", func(in *TxnInput) { in.Amount = -5 }, ErrInvalidAmount},
		{"bad currency", func(in *TxnInput) { in.Currency = "POINTS" }, ErrInvalidCurrency},
		{"missing action", func(in *TxnInput) { in.ActionID = "  " }, ErrActionIDRequired},
		{"missing reason", func(in *TxnInput) { in.Reason = "" }, ErrReasonRequired},
	}

	for _, tt := range cases {
		in := base
		tt.mutate(&in)
		if _, err := ApplyWalletTxn(db, in); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
	}

	var count int64
	db.Model(&WalletTransaction{}).Count(&count)
	if count != 0 {
		t.Fatalf("txn count = %d, want 0 after validation failures", count)
	}
}

func TestApplyWalletTxnWalletNotFound(t *testing.T) {
	db := newTestDB(t)
	seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	_, err := ApplyWalletTxn(db, TxnInput{
		EventKey: "ev1",
		WalletID: uuid.NewString(),
		Type:     TxnTypeDebit,
		Amount:   10,
		Currency: CurrencyTokens,
		Reason:   "PLAY",
		ActionID: "a1",
	})
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound", err)
	}
}

func TestApplyWalletTxnWrongEventKey(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	_, err := ApplyWalletTxn(db, TxnInput{
		EventKey: "ev2",
		WalletID: wallet.ID,
		Type:     TxnTypeDebit,
		Amount:   10,
		Currency: CurrencyTokens,
		Reason:   "PLAY",
		ActionID: "a1",
	})
	if !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("err = %v, want ErrWalletNotFound for foreign event", err)
	}
}

func TestApplyWalletTxnReasonNoteComposition(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	txn, err := ApplyWalletTxn(db, TxnInput{
		EventKey: "ev1",
		WalletID: wallet.ID,
		Type:     TxnTypeDebit,
		Amount:   10,
		Currency: CurrencyTokens,
		Reason:   "  PLAY  ",
		Note:     " extra round ",
		ActionID: "a1",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if txn.Reason != "PLAY — extra round" {
		t.Fatalf("reason = %q", txn.Reason)
	}
}

func TestApplyWalletTxnDuplicateActionRecovery(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	// A competing request already committed this action and its balance
	// change.
	winner := WalletTransaction{
		EventKey:     "ev1",
		WalletID:     wallet.ID,
		Type:         TxnTypeDebit,
		Amount:       30,
		Currency:     CurrencyTokens,
		Reason:       "PLAY",
		BalanceAfter: 70,
		ActorType:    "STAFF",
		ActionID:     "a1",
	}
	if err := db.Create(&winner).Error; err != nil {
		t.Fatalf("seed winner txn: %v", err)
	}
	if err := db.Model(&Wallet{}).Where("id = ?", wallet.ID).Update("balance", 70).Error; err != nil {
		t.Fatalf("apply winner balance: %v", err)
	}

	// Our session's idempotency lookup misses the winner, so it proceeds to
	// insert, loses on the unique index, and must hand back the winner's row.
	hideFirstLookup(t, db, "stale_action_lookup", func(dest interface{}) bool {
		_, ok := dest.(*WalletTransaction)
		return ok
	})

	got, err := ApplyWalletTxn(db, TxnInput{
		EventKey: "ev1",
		WalletID: wallet.ID,
		Type:     TxnTypeDebit,
		Amount:   30,
		Currency: CurrencyTokens,
		Reason:   "PLAY",
		ActionID: "a1",
	})
	if err != nil {
		t.Fatalf("lost race should recover, got: %v", err)
	}
	if got.ID != winner.ID {
		t.Fatalf("returned row %s, want winner %s", got.ID, winner.ID)
	}

	// Exactly one persisted transaction and one net balance change: the
	// loser's own update rolled back.
	var reloaded Wallet
	if err := db.Take(&reloaded, "id = ?", wallet.ID).Error; err != nil {
		t.Fatalf("reload wallet: %v", err)
	}
	if reloaded.Balance != 70 {
		t.Fatalf("balance = %d, want 70", reloaded.Balance)
	}
	var count int64
	db.Model(&WalletTransaction{}).Where("event_key = ? AND action_id = ?", "ev1", "a1").Count(&count)
	if count != 1 {
		t.Fatalf("txn count = %d, want 1", count)
	}
}

func TestApplyWalletTxnConcurrentDistinctActions(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	const workers = 10
	results := make(chan *WalletTransaction, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			txn, err := ApplyWalletTxn(db, TxnInput{
				EventKey: "ev1",
				WalletID: wallet.ID,
				Type:     TxnTypeDebit,
				Amount:   10,
				Currency: CurrencyTokens,
				Reason:   "PLAY",
				ActionID: fmt.Sprintf("c-%d", i),
			})
			if err != nil {
				errs <- err
				return
			}
			results <- txn
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent debit: %v", err)
	}

	// Serialized execution: every transaction observes a distinct balance.
	seen := map[int64]bool{}
	for txn := range results {
		if seen[txn.BalanceAfter] {
			t.Fatalf("two transactions share balance_after %d", txn.BalanceAfter)
		}
		seen[txn.BalanceAfter] = true
	}

	var got Wallet
	db.Take(&got, "id = ?", wallet.ID)
	if got.Balance != 0 {
		t.Fatalf("balance = %d, want 0", got.Balance)
	}
	var count int64
	db.Model(&WalletTransaction{}).Where("wallet_id = ?", wallet.ID).Count(&count)
	if count != workers {
		t.Fatalf("txn count = %d, want %d", count, workers)
	}
}

func TestApplyWalletTxnConcurrentSameAction(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	const workers = 8
	results := make(chan *WalletTransaction, workers)
	errs := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			txn, err := ApplyWalletTxn(db, TxnInput{
				EventKey: "ev1",
				WalletID: wallet.ID,
				Type:     TxnTypeDebit,
				Amount:   30,
				Currency: CurrencyTokens,
				Reason:   "PLAY",
				ActionID: "same-1",
			})
			if err != nil {
				errs <- err
				return
			}
			results <- txn
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent replay: %v", err)
	}

	// All callers land on the same persisted row.
	var firstID string
	for txn := range results {
		if firstID == "" {
			firstID = txn.ID
			continue
		}
		if txn.ID != firstID {
			t.Fatalf("two distinct rows for one action: %s != %s", txn.ID, firstID)
		}
	}

	var got Wallet
	db.Take(&got, "id = ?", wallet.ID)
	if got.Balance != 70 {
		t.Fatalf("balance = %d, want 70 after one net debit", got.Balance)
	}
	var count int64
	db.Model(&WalletTransaction{}).Where("event_key = ? AND action_id = ?", "ev1", "same-1").Count(&count)
	if count != 1 {
		t.Fatalf("txn count = %d, want 1", count)
	}
}

func TestApplyWalletTxnSequence(t *testing.T) {
	db := newTestDB(t)
	wallet := seedWallet(t, db, "ev1", CheckinStatusCheckedIn, 100, 0)

	steps := []struct {
		txnType string
		amount  int64
		want    int64
	}{
		{TxnTypeDebit, 30, 70},
		{TxnTypeDebit, 20, 50},
		{TxnTypeCredit, 10, 60},
		{TxnTypeDebit, 60, 0},
	}

	for i, step := range steps {
		txn, err := ApplyWalletTxn(db, TxnInput{
			EventKey: "ev1",
			WalletID: wallet.ID,
			Type:     step.txnType,
			Amount:   step.amount,
			Currency: CurrencyTokens,
			Reason:   "PLAY",
			ActionID: fmt.Sprintf("seq-%d", i),
		})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if txn.BalanceAfter != step.want {
			t.Fatalf("step %d: balance_after = %d, want %d", i, txn.BalanceAfter, step.want)
		}
	}

	// The wallet balance must equal the initial balance plus the signed sum of
	// all committed transactions.
	var txns []WalletTransaction
	db.Where("wallet_id = ?", wallet.ID).Find(&txns)
	sum := int64(0)
	for _, txn := range txns {
		sum += signedDelta(txn.Type, txn.Amount)
	}

	var got Wallet
	db.Take(&got, "id = ?", wallet.ID)
	if got.Balance != 100+sum {
		t.Fatalf("balance = %d, want %d", got.Balance, 100+sum)
	}
}
