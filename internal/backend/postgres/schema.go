package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  text        NOT NULL,
	id          uuid        NOT NULL,
	data        jsonb       NOT NULL DEFAULT '{}'::jsonb,
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS documents_collection_created_at
	ON documents (collection, created_at DESC);

CREATE TABLE IF NOT EXISTS admins (
	id            uuid        PRIMARY KEY,
	name          text        NOT NULL,
	email         text        NOT NULL UNIQUE,
	password_hash text        NOT NULL,
	avatar        text        NOT NULL DEFAULT '',
	created_at    timestamptz NOT NULL DEFAULT now()
);
`

// Bootstrap creates the backing tables if they do not exist yet.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
