package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/cwrk-planet/studyroom/internal/postgres"
	"github.com/cwrk-planet/studyroom/internal/store"
	"github.com/cwrk-planet/studyroom/internal/store/storetest"

	"github.com/stretchr/testify/require"
)

func TestDocumentStore(t *testing.T) {
	dsn := os.Getenv("STUDYROOM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("STUDYROOM_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	require.NoError(t, postgres.Migrate(ctx, dsn, "up"))

	storetest.Run(t, func(t *testing.T) store.Store {
		pool, err := postgres.NewPool(ctx, postgres.Config{DSN: dsn, MaxConns: 4, ApplicationName: "studyroom-test"})
		require.NoError(t, err)
		t.Cleanup(pool.Close)
		return postgres.NewDocumentStore(pool)
	})
}
