package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ict-ledger/interfaces"
	"ict-ledger/models"
)

// ErrStaleVersion means the account row changed since it was read
var ErrStaleVersion = errors.New("stale account version")

// AccountStore is the repository for the single current account row.
// Every read-modify-write goes through LockCurrent and Update inside one
// transaction.
type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(s *LocalStorage) *AccountStore {
	return &AccountStore{db: s.db}
}

// WithTx binds the store to an open transaction
func (a *AccountStore) WithTx(tx *gorm.DB) *AccountStore {
	return &AccountStore{db: tx}
}

// Current reads the current row without locking
func (a *AccountStore) Current(ctx context.Context) (*models.DBAccountState, error) {
	var row models.DBAccountState
	err := a.db.WithContext(ctx).Where("is_current = ?", true).First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("account_current", "no current account state")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account state: %w", err)
	}
	return &row, nil
}

// LockCurrent reads the current row with SELECT ... FOR UPDATE.
// SQLite has no row locks; its single writer connection serialises instead.
func (a *AccountStore) LockCurrent(ctx context.Context) (*models.DBAccountState, error) {
	var row models.DBAccountState
	err := a.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_current = ?", true).
		First(&row).Error
	if IsNotFound(err) {
		return nil, interfaces.NotFound("account_lock", "no current account state")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account state: %w", err)
	}
	return &row, nil
}

// Ensure creates the current row from seed if none exists. It returns the
// current row and whether it was created by this call.
func (a *AccountStore) Ensure(ctx context.Context, seed models.DBAccountState) (*models.DBAccountState, bool, error) {
	existing, err := a.Current(ctx)
	if err == nil {
		return existing, false, nil
	}
	if !interfaces.IsKind(err, interfaces.KindNotFound) {
		return nil, false, err
	}

	seed.ID = 0
	seed.IsCurrent = true
	seed.Version = 1
	res := a.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create account state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Another process created the current row first
		existing, err := a.Current(ctx)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return &seed, true, nil
}

// Update writes row back if its version still matches, then bumps it.
// A zero-row update is reported as a concurrency conflict.
func (a *AccountStore) Update(ctx context.Context, row *models.DBAccountState) error {
	now := time.Now().UTC()
	res := a.db.WithContext(ctx).
		Model(&models.DBAccountState{}).
		Where("id = ? AND version = ? AND is_current = ?", row.ID, row.Version, true).
		Updates(map[string]any{
			"balance":                    row.Balance,
			"daily_pnl":                  row.DailyPnL,
			"daily_trades":               row.DailyTrades,
			"daily_date":                 row.DailyDate,
			"consecutive_wins":           row.ConsecutiveWins,
			"consecutive_losses":         row.ConsecutiveLosses,
			"max_daily_loss":             row.MaxDailyLoss,
			"max_position_risk":          row.MaxPositionRisk,
			"max_portfolio_heat":         row.MaxPortfolioHeat,
			"consecutive_loss_threshold": row.ConsecutiveLossThreshold,
			"can_trade":                  row.CanTrade,
			"halt_reason":                row.HaltReason,
			"halt_scope":                 row.HaltScope,
			"version":                    row.Version + 1,
			"updated_at":                 now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update account state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return interfaces.ConcurrencyConflict("account_update", ErrStaleVersion)
	}
	row.Version++
	row.UpdatedAt = now
	return nil
}
