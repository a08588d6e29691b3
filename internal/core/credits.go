package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/store"
)

var ErrUserNotFound = &Error{Kind: KindNotFound, Message: "User not found"}

type CreditsView struct {
	Balance        int            `json:"balance"`
	TotalPurchased int            `json:"total_purchased"`
	TotalUsed      int            `json:"total_used"`
	Costs          map[string]int `json:"costs"`
}

type Transactions struct {
	Transactions []*model.CreditTransaction `json:"transactions"`
}

type GrantResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	NewBalance int    `json:"new_balance"`
}

func (s *LeadBlitz) Credits(ctx context.Context, userID string) (*CreditsView, error) {
	acct, err := s.credits.Account(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CreditsView{
		Balance:        acct.Balance,
		TotalPurchased: acct.TotalPurchased,
		TotalUsed:      acct.TotalUsed,
		Costs:          credits.CostTable(),
	}, nil
}

func (s *LeadBlitz) Transactions(ctx context.Context, userID string, limit int) (*Transactions, error) {
	txs, err := s.credits.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []*model.CreditTransaction{}
	}
	return &Transactions{Transactions: txs}, nil
}

// AdminGrant adds credits to the user identified by id or email.
func (s *LeadBlitz) AdminGrant(ctx context.Context, adminID, target string, amount int, reason string) (*GrantResult, error) {
	if amount <= 0 {
		return nil, invalidf("Amount must be positive")
	}
	user, err := s.store.GetUser(ctx, target)
	if store.IsNotFound(err) {
		user, err = s.store.GetUserByEmail(ctx, target)
	}
	if err != nil {
		return nil, lookup(err, ErrUserNotFound)
	}
	if reason == "" {
		reason = "Admin credit adjustment"
	}
	balance, err := s.credits.Grant(ctx, user.ID, amount, reason)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin granted credits", zap.String("admin_id", adminID),
		zap.String("user_id", user.ID), zap.Int("amount", amount), zap.Int("balance", balance))
	return &GrantResult{
		Success:    true,
		Message:    fmt.Sprintf("Added %d credits to %s", amount, user.Email),
		NewBalance: balance,
	}, nil
}
