package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agromercado/cartstate/internal/port"
)

type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pgx pool as a snapshot store. The cart_snapshots table
// comes from internal/migrations.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Save(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO cart_snapshots (slot, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		key, data)
	if err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}

	return nil
}

func (p *Postgres) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT data FROM cart_snapshots WHERE slot = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pool.QueryRow: %w", err)
	}

	return data, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	_, err := p.pool.Exec(ctx, `DELETE FROM cart_snapshots WHERE slot = $1`, key)
	if err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}

	return nil
}
