// Package database opens the stores used by the services: Postgres for
// canonical job records and favorites, ClickHouse for the listing archive.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

const clickHouseDialTimeout = 30 * time.Second

// ClickHouseOptions configures the archive connection. DSN is either a
// clickhouse:// URL or a bare host[:port]; credentials in a URL win over
// Username, Password and Database.
type ClickHouseOptions struct {
	DSN             string
	Username        string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewClickHouse opens and verifies a ClickHouse connection.
func NewClickHouse(ctx context.Context, opts ClickHouseOptions, logger *zap.Logger) (clickhouse.Conn, error) {
	chOpts, err := clickHouseOptions(opts)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, fmt.Errorf("clickhouse.Open: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse ping failed: %w", err)
	}

	logger.Info("connected to clickhouse",
		zap.Strings("addr", chOpts.Addr),
		zap.String("database", chOpts.Auth.Database),
		zap.Int("max_open_conns", chOpts.MaxOpenConns))

	return conn, nil
}

func clickHouseOptions(opts ClickHouseOptions) (*clickhouse.Options, error) {
	chOpts := &clickhouse.Options{}
	if strings.Contains(opts.DSN, "://") {
		parsed, err := clickhouse.ParseDSN(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse.ParseDSN: %w", err)
		}
		chOpts = parsed
	} else {
		host, _, _ := strings.Cut(opts.DSN, "?")
		if host == "" {
			return nil, errors.New("clickhouse dsn is empty")
		}
		chOpts.Addr = []string{host}
	}

	if chOpts.Auth.Username == "" {
		chOpts.Auth.Username = opts.Username
	}
	if chOpts.Auth.Password == "" {
		chOpts.Auth.Password = opts.Password
	}
	if chOpts.Auth.Database == "" {
		chOpts.Auth.Database = opts.Database
	}

	if chOpts.Settings == nil {
		chOpts.Settings = clickhouse.Settings{}
	}
	if _, ok := chOpts.Settings["max_execution_time"]; !ok {
		chOpts.Settings["max_execution_time"] = 60
	}
	if chOpts.DialTimeout == 0 {
		chOpts.DialTimeout = clickHouseDialTimeout
	}
	if opts.MaxOpenConns > 0 {
		chOpts.MaxOpenConns = opts.MaxOpenConns
	}
	if opts.MaxIdleConns > 0 {
		chOpts.MaxIdleConns = opts.MaxIdleConns
	}
	if opts.ConnMaxLifetime > 0 {
		chOpts.ConnMaxLifetime = opts.ConnMaxLifetime
	}
	return chOpts, nil
}
