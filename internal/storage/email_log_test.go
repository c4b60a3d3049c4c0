package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x0BSoD/greenwood/internal/model"
)

func newTestStorage(t *testing.T) *EmailLogStorage {
	t.Helper()

	dsn := os.Getenv("GREENWOOD_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("GREENWOOD_TEST_DATABASE_DSN not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewEmailLogStorage(db)
	require.NoError(t, s.Migrate(context.Background()))
	_, err = db.Exec(`TRUNCATE email_log`)
	require.NoError(t, err)

	return s
}

func TestEmailLogStorage_RecordAndRecent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, model.EmailLogEntry{
		Subject: "First", Recipient: "rwa@example.org", Status: model.EmailStatusSent, CreatedAt: base,
	}))
	require.NoError(t, s.Record(ctx, model.EmailLogEntry{
		Subject: "Second", Recipient: "rwa@example.org", Status: model.EmailStatusFailed, Error: "timeout", CreatedAt: base.Add(time.Minute),
	}))

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Second", got[0].Subject)
	assert.Equal(t, "timeout", got[0].Error)
	assert.Equal(t, model.EmailStatusSent, got[1].Status)

	got, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
