package credits

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/store"
)

func newService(t *testing.T, signup int) *Service {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return NewService(s, signup)
}

func TestCost(t *testing.T) {
	assert.Equal(t, 0, Cost(EmailSend, 40))
	assert.Equal(t, 6, Cost(SMSSend, 3))
	assert.Equal(t, 4, Cost(HunterEnrichment, 2))
	assert.Equal(t, 1, CostTable()["ai_scoring"])
}

func TestDeduct(t *testing.T) {
	svc := newService(t, 3)
	ctx := context.Background()
	require.NoError(t, svc.Open(ctx, "u1"))
	require.NoError(t, svc.Open(ctx, "u1"))

	ok, balance, err := svc.Has(ctx, "u1", SMSSend, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, balance)

	balance, err = svc.Deduct(ctx, "u1", SMSSend, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)

	_, err = svc.Deduct(ctx, "u1", SMSSend, 1)
	var ie *InsufficientError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 2, ie.Need)
	assert.Equal(t, 1, ie.Have)
	assert.True(t, IsInsufficient(err))

	balance, err = svc.Deduct(ctx, "u1", EmailSend, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)

	hist, err := svc.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "sms_send x1", hist[0].Description)
	assert.Equal(t, model.TxGrant, hist[1].Type)
}

func TestDeduct_NoAccount(t *testing.T) {
	svc := newService(t, 0)
	ctx := context.Background()

	balance, err := svc.Balance(ctx, "ghost")
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = svc.Deduct(ctx, "ghost", AIScoring, 1)
	assert.True(t, IsInsufficient(err))

	balance, err = svc.Deduct(ctx, "ghost", LeadSearch, 1)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestGrant(t *testing.T) {
	svc := newService(t, 0)
	ctx := context.Background()

	balance, err := svc.Grant(ctx, "u1", 25, "Admin grant")
	require.NoError(t, err)
	assert.Equal(t, 25, balance)

	_, err = svc.Grant(ctx, "u1", 0, "nothing")
	assert.Error(t, err)

	acct, err := svc.Account(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 25, acct.TotalPurchased)
}
