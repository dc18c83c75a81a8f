package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS trend_models (
		entity_id  TEXT PRIMARY KEY,
		blob       BYTEA NOT NULL,
		fitted_at  TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

	upsertModelSQL = `INSERT INTO trend_models (entity_id, blob, fitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity_id) DO UPDATE SET
			blob = EXCLUDED.blob,
			fitted_at = EXCLUDED.fitted_at,
			updated_at = now()`

	selectModelSQL = `SELECT blob FROM trend_models WHERE entity_id = $1`
)

// DB is the subset of *pgxpool.Pool used by Postgres.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Postgres stores model blobs in the trend_models table.
type Postgres struct {
	db DB
}

// NewPostgres wraps a connection pool.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the trend_models table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create trend_models: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, model domain.TrainedModel) error {
	blob, err := Encode(model)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, upsertModelSQL, model.EntityID, blob, model.FittedAt); err != nil {
		return fmt.Errorf("save model %q: %w", model.EntityID, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, entityID string) (domain.TrainedModel, error) {
	var blob []byte
	err := p.db.QueryRow(ctx, selectModelSQL, entityID).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.TrainedModel{}, fmt.Errorf("load model %q: %w", entityID, err)
	}
	return Decode(blob)
}

func (p *Postgres) CheckReadiness(ctx context.Context) error {
	return p.db.Ping(ctx)
}
