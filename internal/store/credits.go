package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const creditTxInsert = `INSERT INTO credit_transactions (id, user_id, amount, type, description, balance_after, created_at)
	VALUES (:id, :user_id, :amount, :type, :description, :balance_after, :created_at)`

type creditAccountRow struct {
	UserID         string `db:"user_id"`
	Balance        int    `db:"balance"`
	TotalPurchased int    `db:"total_purchased"`
	TotalUsed      int    `db:"total_used"`
}

type creditTxRow struct {
	ID           string `db:"id"`
	UserID       string `db:"user_id"`
	Amount       int    `db:"amount"`
	Type         string `db:"type"`
	Description  string `db:"description"`
	BalanceAfter int    `db:"balance_after"`
	CreatedAt    int64  `db:"created_at"`
}

func (r *creditTxRow) toModel() *model.CreditTransaction {
	return &model.CreditTransaction{
		ID:           r.ID,
		UserID:       r.UserID,
		Amount:       r.Amount,
		Type:         r.Type,
		Description:  r.Description,
		BalanceAfter: r.BalanceAfter,
		CreatedAt:    fromUnix(r.CreatedAt),
	}
}

func recordTx(ctx context.Context, tx *sqlx.Tx, userID string, amount int, typ, desc string, balance int) error {
	row := creditTxRow{
		ID:           uuid.NewString(),
		UserID:       userID,
		Amount:       amount,
		Type:         typ,
		Description:  desc,
		BalanceAfter: balance,
		CreatedAt:    time.Now().UnixNano(),
	}
	if _, err := tx.NamedExecContext(ctx, creditTxInsert, row); err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}
	return nil
}

// EnsureCreditAccount creates the account with an initial grant if the user
// has none yet.
func (s *Store) EnsureCreditAccount(ctx context.Context, userID string, initial int) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO credit_accounts (user_id, balance, total_purchased, total_used)
			VALUES (?, ?, ?, 0) ON CONFLICT (user_id) DO NOTHING`), userID, initial, initial)
		if err != nil {
			return fmt.Errorf("failed to create credit account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 || initial <= 0 {
			return nil
		}
		return recordTx(ctx, tx, userID, initial, model.TxGrant, "Signup bonus", initial)
	})
}

func (s *Store) GetCreditAccount(ctx context.Context, userID string) (*model.CreditAccount, error) {
	var row creditAccountRow
	q := s.db.Rebind(`SELECT user_id, balance, total_purchased, total_used FROM credit_accounts WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &row, q, userID); err != nil {
		return nil, notFound(err)
	}
	return &model.CreditAccount{
		UserID:         row.UserID,
		Balance:        row.Balance,
		TotalPurchased: row.TotalPurchased,
		TotalUsed:      row.TotalUsed,
	}, nil
}

// DeductCredits subtracts cost only if the balance covers it. It reports
// whether the deduction happened and the resulting balance.
func (s *Store) DeductCredits(ctx context.Context, userID string, cost int, desc string) (bool, int, error) {
	var (
		ok      bool
		balance int
	)
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE credit_accounts SET balance = balance - ?, total_used = total_used + ?
			WHERE user_id = ? AND balance >= ?`), cost, cost, userID, cost)
		if err != nil {
			return fmt.Errorf("failed to deduct credits: %w", err)
		}
		if err := tx.GetContext(ctx, &balance, tx.Rebind(`SELECT balance FROM credit_accounts WHERE user_id = ?`), userID); err != nil {
			return notFound(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		ok = true
		return recordTx(ctx, tx, userID, -cost, model.TxUsage, desc, balance)
	})
	return ok, balance, err
}

// AddCredits grants amount to the user, creating the account if needed.
func (s *Store) AddCredits(ctx context.Context, userID string, amount int, typ, desc string) (int, error) {
	var balance int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO credit_accounts (user_id, balance, total_purchased, total_used)
			VALUES (?, 0, 0, 0) ON CONFLICT (user_id) DO NOTHING`), userID)
		if err != nil {
			return fmt.Errorf("failed to create credit account: %w", err)
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE credit_accounts SET balance = balance + ?, total_purchased = total_purchased + ?
			WHERE user_id = ?`), amount, amount, userID)
		if err != nil {
			return fmt.Errorf("failed to add credits: %w", err)
		}
		if err := tx.GetContext(ctx, &balance, tx.Rebind(`SELECT balance FROM credit_accounts WHERE user_id = ?`), userID); err != nil {
			return err
		}
		return recordTx(ctx, tx, userID, amount, typ, desc, balance)
	})
	return balance, err
}

// CreditHistory returns the newest transactions first.
func (s *Store) CreditHistory(ctx context.Context, userID string, limit int) ([]*model.CreditTransaction, error) {
	var rows []creditTxRow
	q := s.db.Rebind(`SELECT id, user_id, amount, type, description, balance_after, created_at
		FROM credit_transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, q, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	out := make([]*model.CreditTransaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel())
	}
	return out, nil
}
