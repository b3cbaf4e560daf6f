// Package sequence allocates named, strictly increasing counters such as
// invoice numbers.
package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Well-known sequence names.
const (
	InvoiceNumber = "invoiceNumber"
	ReturnNumber  = "returnNumber"
	RepairInvoice = "repairInvoice"
	Maintenance   = "maintenance"
)

// Sequencer hands out the next value of a named counter.
type Sequencer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Postgres keeps counters in the counters table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a Postgres sequencer.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Next atomically increments and returns the counter, starting at 1.
func (p *Postgres) Next(ctx context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	var value int64
	err := p.pool.QueryRow(ctx, `INSERT INTO counters (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, name).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", name, err)
	}
	return value, nil
}

// Redis keeps counters as Redis integers under a key prefix.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis constructs a Redis sequencer.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "shopmanager:seq"
	}
	return &Redis{client: client, prefix: prefix}
}

// Next atomically increments and returns the counter, starting at 1.
func (r *Redis) Next(ctx context.Context, name string) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	value, err := r.client.Incr(ctx, r.prefix+":"+name).Result()
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", name, err)
	}
	return value, nil
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("sequence: name required")
	}
	return nil
}

// Format renders a sequence value with a prefix, padding to width digits.
func Format(prefix string, value int64, width int) string {
	return fmt.Sprintf("%s%0*d", prefix, width, value)
}
