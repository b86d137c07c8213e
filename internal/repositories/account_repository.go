package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"secureauth/internal/database"
	"secureauth/internal/models"
)

// AccountRepository: всё, что ядру нужно от хранилища.
// Уникальность email гарантирует само хранилище.
type AccountRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Insert(ctx context.Context, account *models.Account) (string, error)
	Update(ctx context.Context, accountID string, patch models.AccountPatch) error

	// WithTx: fn получает репозиторий внутри транзакции,
	// коммит только если fn вернул nil.
	WithTx(ctx context.Context, fn func(repo AccountRepository) error) error
}

type accountRepository struct {
	db   *sql.DB // nil, если мы уже внутри транзакции
	conn database.DBTX
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db, conn: db}
}

func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	const q = `
		SELECT id, email, username, password, is_verified, otp, otp_expiry, created_at
		FROM accounts
		WHERE email = $1
	`
	a := &models.Account{}
	var (
		username sql.NullString
		otp      sql.NullString
		otpExp   sql.NullTime
	)
	err := r.conn.QueryRowContext(ctx, q, email).Scan(
		&a.ID, &a.Email, &username, &a.PasswordHash, &a.IsVerified, &otp, &otpExp, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, classify(err, "account find by email")
	}
	if username.Valid {
		s := username.String
		a.Username = &s
	}
	if otp.Valid && otpExp.Valid {
		a.Challenge = &models.Challenge{Code: otp.String, ExpiresAt: otpExp.Time}
	}
	return a, nil
}

func (r *accountRepository) Insert(ctx context.Context, a *models.Account) (string, error) {
	const q = `
		INSERT INTO accounts (id, email, username, password, is_verified, otp, otp_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	var (
		otp    sql.NullString
		otpExp sql.NullTime
	)
	if a.Challenge != nil {
		otp = sql.NullString{String: a.Challenge.Code, Valid: true}
		otpExp = sql.NullTime{Time: a.Challenge.ExpiresAt, Valid: true}
	}
	var username sql.NullString
	if a.Username != nil {
		username = sql.NullString{String: *a.Username, Valid: true}
	}
	err := r.conn.QueryRowContext(ctx, q,
		a.ID, a.Email, username, a.PasswordHash, a.IsVerified, otp, otpExp,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return "", classify(err, "account insert")
	}
	return a.ID, nil
}

// Update: один UPDATE, поэтому параллельные записи в одну строку
// сериализует сама база (last writer wins).
func (r *accountRepository) Update(ctx context.Context, accountID string, patch models.AccountPatch) error {
	if patch.Empty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if patch.Verified != nil {
		sets = append(sets, "is_verified = "+arg(*patch.Verified))
	}
	switch {
	case patch.Challenge != nil:
		sets = append(sets,
			"otp = "+arg(patch.Challenge.Code),
			"otp_expiry = "+arg(patch.Challenge.ExpiresAt),
		)
	case patch.ClearChallenge:
		sets = append(sets, "otp = NULL", "otp_expiry = NULL")
	}
	q := "UPDATE accounts SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(accountID)

	res, err := r.conn.ExecContext(ctx, q, args...)
	if err != nil {
		return classify(err, "account update")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err, "account update rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *accountRepository) WithTx(ctx context.Context, fn func(repo AccountRepository) error) error {
	if r.db == nil {
		return fn(r)
	}
	var fnErr error
	err := database.WithTx(ctx, r.db, nil, func(ctx context.Context, tx database.DBTX) error {
		fnErr = fn(&accountRepository{conn: tx})
		return fnErr
	})
	if err == nil || fnErr != nil {
		// ошибки fn отдаём как есть, классифицируем только begin/commit
		return err
	}
	return classify(err, "account tx")
}
