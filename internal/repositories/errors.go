package repositories

import (
	"context"
	"database/sql/driver"
	"io"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("account with this email already exists")
	ErrUnavailable    = errors.New("account store unavailable")
)

// classify сводит ошибки драйвера к ошибкам хранилища.
// Неизвестное оборачиваем как есть.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case code == pgerrcode.UniqueViolation:
			return errors.Wrapf(ErrDuplicateEmail, "%s: %s", op, pqErr.Message)
		case pgerrcode.IsConnectionException(code),
			pgerrcode.IsInsufficientResources(code),
			pgerrcode.IsOperatorIntervention(code):
			return errors.Wrapf(ErrUnavailable, "%s: %s", op, pqErr.Message)
		}
		return errors.Wrap(err, op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(ErrUnavailable, "%s: %v", op, err)
	}
	return errors.Wrap(err, op)
}
