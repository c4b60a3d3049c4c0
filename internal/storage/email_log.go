package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/0x0BSoD/greenwood/internal/model"
)

type EmailLogStorage struct {
	db *sqlx.DB
}

func NewEmailLogStorage(db *sqlx.DB) *EmailLogStorage {
	return &EmailLogStorage{db: db}
}

const emailLogSchema = `
CREATE TABLE IF NOT EXISTS email_log (
	id         BIGSERIAL PRIMARY KEY,
	subject    TEXT NOT NULL,
	recipient  TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_email_log_created_at ON email_log (created_at DESC);
`

func (s *EmailLogStorage) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, emailLogSchema)
	return err
}

func (s *EmailLogStorage) Record(ctx context.Context, entry model.EmailLogEntry) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if _, err := conn.ExecContext(
		ctx,
		`INSERT INTO email_log (subject, recipient, status, error, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.Subject,
		entry.Recipient,
		entry.Status,
		entry.Error,
		entry.CreatedAt,
	); err != nil {
		return err
	}

	return nil
}

func (s *EmailLogStorage) Recent(ctx context.Context, limit uint64) ([]model.EmailLogEntry, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var rows []dbEmailLog
	if err := conn.SelectContext(
		ctx,
		&rows,
		`SELECT id, subject, recipient, status, error, created_at FROM email_log ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return lo.Map(rows, func(row dbEmailLog, _ int) model.EmailLogEntry {
		return model.EmailLogEntry(row)
	}), nil
}

type dbEmailLog struct {
	ID        int64     `db:"id"`
	Subject   string    `db:"subject"`
	Recipient string    `db:"recipient"`
	Status    string    `db:"status"`
	Error     string    `db:"error"`
	CreatedAt time.Time `db:"created_at"`
}
