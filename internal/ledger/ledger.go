// Package ledger maintains the per-institution submission quota. Accounts
// are seeded externally; this subsystem only debits on ingestion and
// credits on top-up, each as a single atomic row update.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNoAccount reports a debit or top-up against an institution that has
// no credit account. Accounts are never created implicitly.
var ErrNoAccount = errors.New("ledger: no account for institution")

// CreditAccount is an institution's remaining submission quota.
type CreditAccount struct {
	Name    string `gorm:"primaryKey"`
	Credits int    `gorm:"not null"`
}

func (CreditAccount) TableName() string { return "credits_inst" }

// Ledger mutates credit balances on the shared database connection.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Debit atomically decrements the institution's balance by one submission.
func (l *Ledger) Debit(ctx context.Context, name string) error {
	tx := l.db.WithContext(ctx).Model(&CreditAccount{}).
		Where("name = ?", name).
		UpdateColumn("credits", gorm.Expr("credits - ?", 1))
	if tx.Error != nil {
		return fmt.Errorf("ledger: debit %s: %w", name, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNoAccount, name)
	}
	return nil
}

// TopUp adds amount to the institution's balance. Amount may be negative.
// A name that matches no account is reported, never created.
func (l *Ledger) TopUp(ctx context.Context, name string, amount int) error {
	tx := l.db.WithContext(ctx).Model(&CreditAccount{}).
		Where("name = ?", name).
		UpdateColumn("credits", gorm.Expr("credits + ?", amount))
	if tx.Error != nil {
		return fmt.Errorf("ledger: top up %s: %w", name, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNoAccount, name)
	}
	return nil
}

// Balance reads the current balance, mainly for tests and diagnostics.
func (l *Ledger) Balance(ctx context.Context, name string) (int, error) {
	var account CreditAccount
	err := l.db.WithContext(ctx).First(&account, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrNoAccount, name)
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: balance of %s: %w", name, err)
	}
	return account.Credits, nil
}
