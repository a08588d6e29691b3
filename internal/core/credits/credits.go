// Package credits prices metered operations and debits user balances.
package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/store"
)

// Operation names a metered action.
type Operation string

const (
	AIScoring            Operation = "ai_scoring"
	EmailSend            Operation = "email_send"
	SMSSend              Operation = "sms_send"
	LeadSearch           Operation = "lead_search"
	EmailPersonalization Operation = "email_personalization"
	HunterEnrichment     Operation = "hunter_enrichment"
)

// Costs is the price of one unit of each operation.
var Costs = map[Operation]int{
	AIScoring:            1,
	EmailSend:            0,
	SMSSend:              2,
	LeadSearch:           0,
	EmailPersonalization: 1,
	HunterEnrichment:     2,
}

// Cost returns the price of count units of op.
func Cost(op Operation, count int) int {
	return Costs[op] * count
}

// InsufficientError is returned when a balance cannot cover a charge.
type InsufficientError struct {
	Op   Operation
	Need int
	Have int
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient credits for %s: need %d, have %d", e.Op, e.Need, e.Have)
}

// IsInsufficient reports whether err is an InsufficientError.
func IsInsufficient(err error) bool {
	var ie *InsufficientError
	return errors.As(err, &ie)
}

// Ledger is the persistence the service needs. *store.Store implements it.
type Ledger interface {
	EnsureCreditAccount(ctx context.Context, userID string, initial int) error
	GetCreditAccount(ctx context.Context, userID string) (*model.CreditAccount, error)
	DeductCredits(ctx context.Context, userID string, cost int, desc string) (bool, int, error)
	AddCredits(ctx context.Context, userID string, amount int, typ, desc string) (int, error)
	CreditHistory(ctx context.Context, userID string, limit int) ([]*model.CreditTransaction, error)
}

type Service struct {
	ledger        Ledger
	signupCredits int
}

func NewService(ledger Ledger, signupCredits int) *Service {
	return &Service{ledger: ledger, signupCredits: signupCredits}
}

// Open creates the user's account with the signup grant. Existing accounts
// are left alone.
func (s *Service) Open(ctx context.Context, userID string) error {
	return s.ledger.EnsureCreditAccount(ctx, userID, s.signupCredits)
}

// Balance returns the current balance. Users without an account have 0.
func (s *Service) Balance(ctx context.Context, userID string) (int, error) {
	acct, err := s.Account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func (s *Service) Account(ctx context.Context, userID string) (*model.CreditAccount, error) {
	acct, err := s.ledger.GetCreditAccount(ctx, userID)
	if store.IsNotFound(err) {
		return &model.CreditAccount{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Has reports whether the balance covers count units of op.
func (s *Service) Has(ctx context.Context, userID string, op Operation, count int) (bool, int, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	return balance >= Cost(op, count), balance, nil
}

// Deduct charges count units of op. A zero cost always succeeds without
// touching the ledger. A balance that cannot cover the cost yields an
// *InsufficientError and leaves the balance unchanged.
func (s *Service) Deduct(ctx context.Context, userID string, op Operation, count int) (int, error) {
	cost := Cost(op, count)
	if cost == 0 {
		return s.Balance(ctx, userID)
	}
	ok, balance, err := s.ledger.DeductCredits(ctx, userID, cost, fmt.Sprintf("%s x%d", op, count))
	if store.IsNotFound(err) {
		return 0, &InsufficientError{Op: op, Need: cost}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to deduct credits: %w", err)
	}
	if !ok {
		return balance, &InsufficientError{Op: op, Need: cost, Have: balance}
	}
	return balance, nil
}

// Grant adds credits, creating the account when missing.
func (s *Service) Grant(ctx context.Context, userID string, amount int, desc string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	return s.ledger.AddCredits(ctx, userID, amount, model.TxGrant, desc)
}

// History returns up to limit transactions, newest first. The limit is
// clamped to [1, 200] with 50 as the default.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]*model.CreditTransaction, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	return s.ledger.CreditHistory(ctx, userID, limit)
}

// CostTable returns the operation prices keyed by name.
func CostTable() map[string]int {
	out := make(map[string]int, len(Costs))
	for op, c := range Costs {
		out[string(op)] = c
	}
	return out
}
