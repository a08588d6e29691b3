//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/leadblitz/internal/core/credits"
	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/store"
)

func TestPostgresStore_Credits(t *testing.T) {
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if !strings.HasPrefix(dsn, "postgres") {
		t.Skip("Skipping integration test: DATABASE_URL is not a postgres URL")
	}
	ctx := context.Background()
	st, err := store.Open(ctx, dsn)
	require.NoError(t, err)
	defer st.Close()

	u := &model.User{ID: uuid.NewString(), Email: uuid.NewString() + "@leadblitz.test", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, u))
	err = st.CreateUser(ctx, &model.User{ID: uuid.NewString(), Email: u.Email, PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	cs := credits.NewService(st, 3)
	require.NoError(t, cs.Open(ctx, u.ID))

	balance, err := cs.Deduct(ctx, u.ID, credits.SMSSend, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)

	_, err = cs.Deduct(ctx, u.ID, credits.SMSSend, 1)
	assert.True(t, credits.IsInsufficient(err))
	balance, err = cs.Balance(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)

	history, err := cs.History(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, history)
}
