package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const accountsDDL = `
	CREATE TABLE IF NOT EXISTS accounts (
		id          UUID PRIMARY KEY,
		username    VARCHAR(255),
		email       VARCHAR(255) UNIQUE NOT NULL,
		password    VARCHAR(255) NOT NULL,
		is_verified BOOLEAN NOT NULL DEFAULT FALSE,
		otp         VARCHAR(6),
		otp_expiry  TIMESTAMPTZ,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

// Column: строка из information_schema для команды check.
type Column struct {
	Name      string
	DataType  string
	MaxLength *int64
}

// EnsureSchema создаёт таблицу. Это разовый bootstrap на старте:
// фиксированное число попыток с фиксированной паузой, в обработке запросов ретраев нет.
func EnsureSchema(ctx context.Context, db *sql.DB, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)
	try := 0
	op := func() error {
		try++
		log.Info().Int("attempt", try).Msg("[db][setup] connecting to database")
		if err := db.PingContext(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		if _, err := db.ExecContext(ctx, accountsDDL); err != nil {
			return errors.Wrap(err, "create accounts table")
		}
		return nil
	}
	notify := func(err error, next time.Duration) {
		log.Warn().Err(err).
			Int("remaining", attempts-try).
			Dur("retry_in", next).
			Msg("[db][setup] attempt failed, retrying")
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return errors.Wrapf(err, "schema init failed after %d attempts", try)
	}
	log.Info().Msg("[db][setup] accounts table created or already exists")
	return nil
}

// DropSchema: для команды reset. Данные теряются.
func DropSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS accounts`)
	return errors.Wrap(err, "drop accounts table")
}

// DescribeSchema сообщает, есть ли таблица, и её колонки.
func DescribeSchema(ctx context.Context, db *sql.DB) (bool, []Column, error) {
	const existsQ = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'accounts'
		)
	`
	var exists bool
	if err := db.QueryRowContext(ctx, existsQ).Scan(&exists); err != nil {
		return false, nil, classify(err, "check accounts table")
	}
	if !exists {
		return false, nil, nil
	}

	const colsQ = `
		SELECT column_name, data_type, character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = 'accounts'
		ORDER BY ordinal_position
	`
	rows, err := db.QueryContext(ctx, colsQ)
	if err != nil {
		return true, nil, classify(err, "describe accounts table")
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c      Column
			maxLen sql.NullInt64
		)
		if err := rows.Scan(&c.Name, &c.DataType, &maxLen); err != nil {
			return true, nil, errors.Wrap(err, "scan column")
		}
		if maxLen.Valid {
			n := maxLen.Int64
			c.MaxLength = &n
		}
		cols = append(cols, c)
	}
	return true, cols, rows.Err()
}
