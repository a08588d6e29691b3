//go:build integration

package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/leadblitz/internal/core/cache"
)

type cachedScore struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

func TestRedisCache(t *testing.T) {
	_ = godotenv.Load("../../.env")
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := cache.DialRedis(ctx, url)
	require.NoError(t, err)
	defer client.Close()

	c := cache.NewRedisCache(client, time.Second)
	site := "https://www." + uuid.NewString() + ".test/"

	var got cachedScore
	assert.ErrorIs(t, c.Get(ctx, site, &got), cache.ErrMiss)

	require.NoError(t, c.Set(ctx, site, cachedScore{Score: 72, Reasons: []string{"ssl"}}))
	// Lookups normalize the URL.
	require.NoError(t, c.Get(ctx, "https://"+site[len("https://www."):len(site)-1], &got))
	assert.Equal(t, 72, got.Score)

	time.Sleep(1500 * time.Millisecond)
	assert.ErrorIs(t, c.Get(ctx, site, &got), cache.ErrMiss)
}
