package db

import (
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

type ClickHouseOpts struct {
	DSN             string // e.g. clickhouse://default:@localhost:9000/inboxgw?dial_timeout=5s&compress=true
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration // default 3s
}

// NewClickHouseConnection opens the analytics read side that the event
// archiver writes lifecycle envelopes into.
func NewClickHouseConnection(opts ClickHouseOpts) (*sqlx.DB, error) {
	db, err := sqlx.Open("clickhouse", opts.DSN)
	if err != nil {
		return nil, err
	}

	applyPool(db, opts.MaxOpenConns, opts.MaxIdleConns, opts.ConnMaxLifetime, opts.ConnMaxIdleTime)

	if err := pingWithTimeout(db, opts.PingTimeout, 3*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
