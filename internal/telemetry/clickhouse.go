package telemetry

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/korefront/repcoach/internal/session"
)

const createRepEvents = `
CREATE TABLE IF NOT EXISTS rep_events (
	at          DateTime64(3),
	session_id  String,
	exercise_id String,
	kind        LowCardinality(String),
	stage       LowCardinality(String),
	rep_count   UInt32,
	angle       Float64
) ENGINE = MergeTree()
ORDER BY (exercise_id, session_id, at)`

const insertRepEvent = `
INSERT INTO rep_events (at, session_id, exercise_id, kind, stage, rep_count, angle)
VALUES (?, ?, ?, ?, ?, ?, ?)`

// Execer is the part of a ClickHouse connection the sink needs.
type Execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseSink writes one row per session event. It implements session.Sink.
type ClickHouseSink struct {
	conn  Execer
	close func() error
}

// DialClickHouse opens a connection, creates the schema and returns a sink.
func DialClickHouse(ctx context.Context, config ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{config.Addr},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	sink := &ClickHouseSink{conn: conn, close: conn.Close}
	if err := sink.InitSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("telemetry: connected to ClickHouse at %s", config.Addr)
	return sink, nil
}

// NewClickHouseSink wraps an existing connection.
func NewClickHouseSink(conn Execer) *ClickHouseSink {
	return &ClickHouseSink{conn: conn}
}

// InitSchema creates the rep_events table if it does not exist.
func (s *ClickHouseSink) InitSchema(ctx context.Context) error {
	if err := s.conn.Exec(ctx, createRepEvents); err != nil {
		return fmt.Errorf("failed to create rep_events: %w", err)
	}
	return nil
}

// Name implements session.Sink.
func (s *ClickHouseSink) Name() string { return "clickhouse" }

// Handle inserts e.
func (s *ClickHouseSink) Handle(ctx context.Context, e session.Event) error {
	err := s.conn.Exec(ctx, insertRepEvent,
		e.At,
		e.SessionID,
		e.ExerciseID,
		string(e.Kind),
		string(e.Stage),
		uint32(max(e.RepCount, 0)),
		e.Angle,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rep event: %w", err)
	}
	return nil
}

// Close closes the underlying connection when the sink owns it.
func (s *ClickHouseSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
