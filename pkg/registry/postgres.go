package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the pgx-backed Registry. Schema lives in the goose migrations
// under api/config/migrations.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a Registry backed by the given connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Save(ctx context.Context, meta Meta) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO datasets (identifier, original_name, byte_size, mime_type, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identifier) DO UPDATE
		SET original_name = EXCLUDED.original_name,
		    byte_size = EXCLUDED.byte_size,
		    mime_type = EXCLUDED.mime_type,
		    metadata = EXCLUDED.metadata
	`, meta.Identifier, meta.OriginalName, meta.ByteSize, meta.MIMEType, meta.Metadata)
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", meta.Identifier, err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, limit, offset int) (Page, error) {
	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM datasets`).Scan(&total); err != nil {
		return Page{}, fmt.Errorf("count datasets: %w", err)
	}

	rows, err := p.pool.Query(ctx, `
		SELECT identifier, original_name, byte_size, mime_type, metadata, created_at
		FROM datasets
		ORDER BY created_at DESC, identifier ASC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	datasets := []Meta{}
	for rows.Next() {
		var m Meta
		if err := rows.Scan(&m.Identifier, &m.OriginalName, &m.ByteSize, &m.MIMEType, &m.Metadata, &m.CreatedAt); err != nil {
			return Page{}, fmt.Errorf("scan dataset: %w", err)
		}
		datasets = append(datasets, m)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate datasets: %w", err)
	}

	return Page{Datasets: datasets, Total: total}, nil
}

func (p *Postgres) Get(ctx context.Context, identifier string) (*Meta, error) {
	var m Meta
	err := p.pool.QueryRow(ctx, `
		SELECT identifier, original_name, byte_size, mime_type, metadata, created_at
		FROM datasets WHERE identifier = $1
	`, identifier).Scan(&m.Identifier, &m.OriginalName, &m.ByteSize, &m.MIMEType, &m.Metadata, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get dataset %s: %w", identifier, err)
	}
	return &m, nil
}

func (p *Postgres) Delete(ctx context.Context, identifier string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM datasets WHERE identifier = $1`, identifier)
	if err != nil {
		return fmt.Errorf("delete dataset %s: %w", identifier, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
