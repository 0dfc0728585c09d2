// Package postgres implements the relational reference backend.
//
// Schema (external collaborator, not managed by this package):
//
//	create type metric_kind as enum ('gauge', 'counter', 'timing');
//	create table metrics (
//	    name  text        not null,
//	    kind  metric_kind not null,
//	    time  timestamptz not null,
//	    value float8,
//	    primary key (name, kind, time)
//	);
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/metcod/metcod/internal/registry"
)

// Kind is one of the three enumerated metric_kind values.
type Kind string

const (
	KindGauge   Kind = "gauge"
	KindCounter Kind = "counter"
	KindTiming  Kind = "timing"
)

const insertSQL = `
insert into metrics (name, kind, time, value)
values ($1, $2, $3, $4)
on conflict (name, kind, time)
    do nothing
`

// Config is the connection detail this backend needs each flush.
type Config struct {
	Host     string
	Port     uint16
	User     string
	Password string
	DBName   string
}

func (c Config) dsn() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Backend inserts one row per published metric series, expanding
// counters and timings into seven rows apiece (.count, .sum, .avg,
// .std, .median, .p75, .p90); gauges are a single row. Per-row
// insertion failures are logged and do not abort the frame.
type Backend struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New opens a connection pool for this flush. Per the daemon's
// per-frame backend lifecycle, the pool is torn down by Publish itself
// once the frame has been written.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Backend, error) {
	pool, err := pgxpool.New(ctx, cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("postgres backend: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres backend: ping: %w", err)
	}
	return &Backend{pool: pool, log: log}, nil
}

// Publish writes the frame and closes the pool opened in New.
func (b *Backend) Publish(ctx context.Context, at time.Time, frame registry.TimeFrame) {
	defer b.pool.Close()

	for name, value := range frame.Gauges {
		b.insert(ctx, at, KindGauge, name, float64(value))
	}

	for name, s := range frame.Counters {
		b.insertSeries(ctx, at, KindCounter, name, s.Count(), s.Sum(), s.Average(), s.Std(), s.Median(), s.Percentile(0.75), s.Percentile(0.90))
	}

	for name, s := range frame.Timings {
		b.insertSeries(ctx, at, KindTiming, name, s.Count(), s.Sum(), s.Average(), s.Std(), s.Median(), s.Percentile(0.75), s.Percentile(0.90))
	}
}

func (b *Backend) insertSeries(ctx context.Context, at time.Time, kind Kind, name string, count int, sum uint64, avg, std, median float64, p75, p90 uint64) {
	b.insert(ctx, at, kind, name+".count", float64(count))
	b.insert(ctx, at, kind, name+".sum", float64(sum))
	b.insert(ctx, at, kind, name+".avg", avg)
	b.insert(ctx, at, kind, name+".std", std)
	b.insert(ctx, at, kind, name+".median", median)
	b.insert(ctx, at, kind, name+".p75", float64(p75))
	b.insert(ctx, at, kind, name+".p90", float64(p90))
}

func (b *Backend) insert(ctx context.Context, at time.Time, kind Kind, name string, value float64) {
	if _, err := b.pool.Exec(ctx, insertSQL, name, string(kind), at, value); err != nil {
		b.log.Error().Err(err).Str("metric", name).Msg("postgres backend: insert failed")
	}
}
