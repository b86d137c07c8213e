package database

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

type PoolConfig struct {
	URL            string
	MaxOpenConns   int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
}

// Open открывает пул, но не ходит в базу: первую проверку делает
// bootstrap схемы со своими ретраями.
func Open(cfg PoolConfig) (*sql.DB, error) {
	dsn, err := withConnectTimeout(cfg.URL, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(cfg.IdleTimeout)
	}
	return db, nil
}

// Ping с собственным таймаутом.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return errors.Wrap(db.PingContext(ctx), "ping postgres")
}

// lib/pq понимает connect_timeout (в секундах) только в самом DSN.
func withConnectTimeout(dsn string, timeout time.Duration) (string, error) {
	if timeout <= 0 || dsn == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		// key=value DSN
		return dsn + " connect_timeout=" + strconv.Itoa(int(timeout.Seconds())), nil
	}
	q := u.Query()
	if q.Get("connect_timeout") == "" {
		q.Set("connect_timeout", strconv.Itoa(int(timeout.Seconds())))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
