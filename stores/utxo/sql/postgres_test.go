package sql

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/bitnames/bitnames/settings"
	"github.com/bitnames/bitnames/stores/utxo/tests"
	"github.com/bitnames/bitnames/ulogger"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts a throwaway postgres and returns its store URL.
func setupPostgresContainer(t *testing.T) *url.URL {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	postgresC, err := postgres.Run(ctx,
		"docker.io/postgres:16-alpine",
		postgres.WithDatabase("utxos"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second),
			wait.ForListeningPort("5432/tcp")),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = postgresC.Terminate(ctx)
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)

	port, err := postgresC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	storeURL, err := url.Parse(fmt.Sprintf("postgres://postgres:password@%s:%s/utxos?sslmode=disable", host, port.Port()))
	require.NoError(t, err)

	return storeURL
}

func TestPostgres(t *testing.T) {
	storeURL := setupPostgresContainer(t)

	for name, fn := range tests.Suite {
		t.Run(name, func(t *testing.T) {
			store, err := New(context.Background(), ulogger.TestLogger{}, &settings.Settings{}, storeURL)
			require.NoError(t, err)

			// every case starts from empty tables in the shared database
			for _, table := range []string{"utxos", "bitnames", "best_block"} {
				_, err = store.db.ExecContext(context.Background(), "DELETE FROM "+table)
				require.NoError(t, err)
			}

			t.Cleanup(func() {
				_ = store.Close()
			})

			fn(t, store)
		})
	}
}
