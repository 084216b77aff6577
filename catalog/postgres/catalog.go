// Package postgres registers finished uploads in the file catalog's
// relational schema.
package postgres

import (
	"context"
	"fmt"

	"github.com/derektruong/mpxfer/catalog"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const insertEntryQuery = `
INSERT INTO files (id, name, size_bytes, content_type, folder_id, owner, object_id, completed_at)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
ON CONFLICT (object_id) DO NOTHING`

// Catalog is a catalog.Catalog backed by the file manager's Postgres
// schema. The files table is owned by the catalog service; this
// implementation only inserts completed rows.
type Catalog struct {
	logger logr.Logger
	pool   *pgxpool.Pool
}

// New constructs a Catalog over an existing connection pool.
func New(logger logr.Logger, pool *pgxpool.Pool) *Catalog {
	return &Catalog{
		logger: logger.WithName("catalog.postgres"),
		pool:   pool,
	}
}

func (c *Catalog) RegisterObject(ctx context.Context, entry catalog.Entry) (err error) {
	if _, err = c.pool.Exec(
		ctx,
		insertEntryQuery,
		uuid.NewString(),
		entry.Name,
		entry.Size,
		entry.ContentType,
		entry.FolderID,
		entry.Owner,
		entry.ObjectID,
		entry.CompletedAt,
	); err != nil {
		return fmt.Errorf("unable to register catalog entry for %s: %w", entry.ObjectID, err)
	}
	c.logger.Info("registered catalog entry",
		"name", entry.Name, "objectID", entry.ObjectID, "owner", entry.Owner)
	return
}
