package store

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fwdask/fwdask/flow"
)

const (
	createTableQuery = `CREATE TABLE IF NOT EXISTS flows (
                   vlan Int32,
                   ethType Int32,
                   srcMac String,
                   destMac String,
                   netProtocol Int32,
                   srcIp String,
                   destIp String,
                   srcPort Int32,
                   destPort Int32,
                   timestamp DateTime64(9))
                   ENGINE = MergeTree
                   ORDER BY (timestamp)`
	insertQuery = `INSERT INTO flows (
                   vlan,
                   ethType,
                   srcMac,
                   destMac,
                   netProtocol,
                   srcIp,
                   destIp,
                   srcPort,
                   destPort,
                   timestamp)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectQuery = `SELECT vlan, ethType, srcMac, destMac, netProtocol, srcIp, destIp, srcPort, destPort, timestamp FROM flows WHERE %s = ? ORDER BY timestamp`
)

type ClickHouseConfig struct {
	Addr        string
	Username    string
	Password    string
	Database    string
	Compress    bool
	TLSConfig   *tls.Config
	DialTimeout time.Duration
	// CreateTable creates the flows table when it does not exist.
	CreateTable bool
}

type clickhouseStore struct {
	db *sql.DB
}

func NewClickHouseStore(ctx context.Context, config ClickHouseConfig) (Store, error) {
	opt := &clickhouse.Options{
		Addr: []string{config.Addr},
		Auth: clickhouse.Auth{
			Username: config.Username,
			Password: config.Password,
			Database: config.Database,
		},
		Protocol:    clickhouse.Native,
		TLS:         config.TLSConfig,
		DialTimeout: config.DialTimeout,
	}
	if config.Compress {
		opt.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opt)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error when connecting to ClickHouse, %w", err)
	}
	return newClickHouseStore(ctx, db, config.CreateTable)
}

func newClickHouseStore(ctx context.Context, db *sql.DB, createTable bool) (*clickhouseStore, error) {
	if createTable {
		if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
			db.Close()
			return nil, fmt.Errorf("error when creating flows table, %w", err)
		}
	}
	return &clickhouseStore{db: db}, nil
}

func (s *clickhouseStore) Insert(ctx context.Context, f *flow.Flow) error {
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx,
		f.VlanID,
		f.EthType,
		f.SourceMac,
		f.DestinationMac,
		f.NetProtocol,
		f.NetSource,
		f.NetDestination,
		f.TransportSource,
		f.TransportDestination,
		ts,
	); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *clickhouseStore) FindBySource(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return s.find(ctx, "srcIp", addr)
}

func (s *clickhouseStore) FindByDestination(ctx context.Context, addr string) ([]*flow.Flow, error) {
	return s.find(ctx, "destIp", addr)
}

func (s *clickhouseStore) find(ctx context.Context, column string, addr string) ([]*flow.Flow, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(selectQuery, column), addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	defer rows.Close()

	flows := []*flow.Flow{}
	for rows.Next() {
		f := &flow.Flow{}
		if err := rows.Scan(
			&f.VlanID,
			&f.EthType,
			&f.SourceMac,
			&f.DestinationMac,
			&f.NetProtocol,
			&f.NetSource,
			&f.NetDestination,
			&f.TransportSource,
			&f.TransportDestination,
			&f.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
		}
		flows = append(flows, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreRead, err)
	}
	return flows, nil
}

func (s *clickhouseStore) Close() error {
	return s.db.Close()
}
