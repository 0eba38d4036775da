//go:build integration

// Package postgres_test runs the PostgreSQL family store against a real
// server.  Tests require Docker and are gated behind the "integration" build
// tag.
package postgres_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/database/postgres"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// startPostgres launches a PostgreSQL 16 container, migrates it and returns
// a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "famscope_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	cfg := config.PostgresConfig{
		Host: host, Port: portNum, User: "test", Password: "test", DBName: "famscope_test", SSLMode: "disable",
	}
	require.NoError(t, postgres.RunMigrations(cfg))
	version, dirty, err := postgres.MigrationStatus(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	pool, err := postgres.NewConnectionPool(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { postgres.Close(pool) })
	return pool
}

func TestFamilyStore_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	s := postgres.NewFamilyStore(pool, "patent_family", nil, nil)
	require.NoError(t, s.Ping(ctx))

	c, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Add(family.NewRecord("a", "10123456", "Gear", "2019-01-01")))
	require.NoError(t, s.Save(ctx, c))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, ptypes.Number("10123456"), got.Records[0].PatentNumber)
	assert.Equal(t, int64(1), got.Version)

	stale, _ := s.Load(ctx)
	require.NoError(t, s.Save(ctx, got))
	err = s.Save(ctx, stale)
	assert.True(t, errors.IsCode(err, errors.CodeConflict))
}

func TestFamilyStore_ConcurrentMutate(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	s := postgres.NewFamilyStore(pool, "patent_family", nil, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			num := ptypes.Number(fmt.Sprintf("%d00000", i+1))
			_, err := family.Mutate(ctx, s, func(c *family.Collection) error {
				return c.Add(family.NewRecord(num.String(), num, "", ""))
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	c, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, succeeded, c.Len(), "no lost updates")
}

func TestJobStore_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	js := postgres.NewJobStore(pool, "patent_family")

	report := &importer.Report{JobID: "job-1", Total: 1, Added: 1,
		Outcomes:  []importer.Outcome{{Identifier: "111111", Status: importer.StatusAdded}},
		StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}
	require.NoError(t, js.SaveReport(ctx, report))
	report.Added, report.Skipped = 0, 1
	require.NoError(t, js.SaveReport(ctx, report), "saving again overwrites")

	got, err := js.Report(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Skipped)
	assert.Len(t, got.Outcomes, 1)
}

func TestWithTransaction(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	err := postgres.WithTransaction(ctx, pool, func(tx pgx.Tx, txCtx context.Context) error {
		_, err := tx.Exec(txCtx, `INSERT INTO family_sessions (session_key, data) VALUES ('tx', '{}')`)
		require.NoError(t, err)
		return fmt.Errorf("intentional error for rollback test")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM family_sessions WHERE session_key = 'tx'`).Scan(&count))
	assert.Equal(t, 0, count)

	assert.Panics(t, func() {
		_ = postgres.WithTransaction(ctx, pool, func(tx pgx.Tx, txCtx context.Context) error {
			_, _ = tx.Exec(txCtx, `INSERT INTO family_sessions (session_key, data) VALUES ('tx', '{}')`)
			panic("intentional panic")
		})
	})
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM family_sessions WHERE session_key = 'tx'`).Scan(&count))
	assert.Equal(t, 0, count)

	require.NoError(t, postgres.WithTransaction(ctx, pool, func(tx pgx.Tx, txCtx context.Context) error {
		_, err := tx.Exec(txCtx, `INSERT INTO family_sessions (session_key, data) VALUES ('tx', '{}')`)
		return err
	}))
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM family_sessions WHERE session_key = 'tx'`).Scan(&count))
	assert.Equal(t, 1, count)
}

//Personal.AI order the ending
