package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/context-rag/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	getContextQuery = `
SELECT id, name, description, sharepoint_url
FROM contexts
WHERE id = $1`

	listContextsQuery = `
SELECT id, name, description, sharepoint_url
FROM contexts
ORDER BY id`

	insertContextQuery = `
INSERT INTO contexts (name, description, sharepoint_url)
VALUES ($1, $2, $3)
RETURNING id, name, description, sharepoint_url`

	upsertContextQuery = `
INSERT INTO contexts (id, name, description, sharepoint_url)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET name = EXCLUDED.name,
    description = EXCLUDED.description,
    sharepoint_url = EXCLUDED.sharepoint_url,
    updated_at = NOW()
RETURNING id, name, description, sharepoint_url`

	deleteContextQuery = `DELETE FROM contexts WHERE id = $1`
)

var _ ContextRepository = &ContextPostgres{}

// ContextPostgres implements ContextRepository using PostgreSQL
type ContextPostgres struct {
	db *pgxpool.Pool
}

func NewContextPostgres(db *pgxpool.Pool) *ContextPostgres {
	return &ContextPostgres{
		db: db,
	}
}

func (r *ContextPostgres) Get(ctx context.Context, id entity.ContextID) (*entity.Context, error) {
	result, err := scanContext(r.db.QueryRow(ctx, getContextQuery, int64(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrContextNotFound
		}
		return nil, fmt.Errorf("get context: %w", err)
	}

	return result, nil
}

// Save inserts a new context when c.ID is zero, otherwise upserts by id
func (r *ContextPostgres) Save(ctx context.Context, c entity.Context) (*entity.Context, error) {
	var row pgx.Row
	if c.ID == 0 {
		row = r.db.QueryRow(ctx, insertContextQuery, c.Name, optionalText(c.Description), optionalText(c.SharePointURL))
	} else {
		row = r.db.QueryRow(ctx, upsertContextQuery, int64(c.ID), c.Name, optionalText(c.Description), optionalText(c.SharePointURL))
	}

	result, err := scanContext(row)
	if err != nil {
		return nil, fmt.Errorf("save context: %w", err)
	}

	return result, nil
}

func (r *ContextPostgres) List(ctx context.Context) ([]*entity.Context, error) {
	rows, err := r.db.Query(ctx, listContextsQuery)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}
	defer rows.Close()

	var contexts []*entity.Context
	for rows.Next() {
		c, err := scanContext(rows)
		if err != nil {
			return nil, fmt.Errorf("scan context: %w", err)
		}
		contexts = append(contexts, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	return contexts, nil
}

func (r *ContextPostgres) Delete(ctx context.Context, id entity.ContextID) error {
	tag, err := r.db.Exec(ctx, deleteContextQuery, int64(id))
	if err != nil {
		return fmt.Errorf("delete context: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return entity.ErrContextNotFound
	}

	return nil
}

func scanContext(row pgx.Row) (*entity.Context, error) {
	var (
		id            int64
		name          string
		description   pgtype.Text
		sharePointURL pgtype.Text
	)

	if err := row.Scan(&id, &name, &description, &sharePointURL); err != nil {
		return nil, err
	}

	return &entity.Context{
		ID:            entity.ContextID(id),
		Name:          name,
		Description:   description.String,
		SharePointURL: sharePointURL.String,
	}, nil
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
