package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"keyport.io/keyport/internal/domain"
)

const platformColumns = `id, name, description, created_at`

func scanPlatform(row pgx.Row) (domain.Platform, error) {
	var p domain.Platform
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt)
	return p, err
}

const createPlatform = `INSERT INTO platforms (name, description)
VALUES ($1, $2)
RETURNING ` + platformColumns

func (q *Queries) CreatePlatform(ctx context.Context, arg CreatePlatformParams) (domain.Platform, error) {
	p, err := scanPlatform(q.db.QueryRow(ctx, createPlatform, arg.Name, arg.Description))
	return p, mapErr(err)
}

const getPlatform = `SELECT ` + platformColumns + ` FROM platforms WHERE id = $1`

func (q *Queries) GetPlatform(ctx context.Context, id int64) (domain.Platform, error) {
	p, err := scanPlatform(q.db.QueryRow(ctx, getPlatform, id))
	return p, mapErr(err)
}

const getPlatformByName = `SELECT ` + platformColumns + ` FROM platforms WHERE name = $1 ORDER BY id LIMIT 1`

func (q *Queries) GetPlatformByName(ctx context.Context, name string) (domain.Platform, error) {
	p, err := scanPlatform(q.db.QueryRow(ctx, getPlatformByName, name))
	return p, mapErr(err)
}

func (q *Queries) ListPlatforms(ctx context.Context, arg domain.PlatformListParams) ([]domain.Platform, error) {
	var w whereBuilder
	return q.listPlatforms(ctx, &w, arg)
}

func (q *Queries) ListPlatformsForUser(ctx context.Context, userID int64, arg domain.PlatformListParams) ([]domain.Platform, error) {
	var w whereBuilder
	w.add(`id IN (SELECT platform_id FROM user_integrations WHERE user_id = ?)`, userID)
	return q.listPlatforms(ctx, &w, arg)
}

func (q *Queries) listPlatforms(ctx context.Context, w *whereBuilder, arg domain.PlatformListParams) ([]domain.Platform, error) {
	if arg.Name != nil {
		w.add(`name ILIKE ? ESCAPE '\'`, containsPattern(*arg.Name))
	}
	if arg.Description != nil {
		w.add(`description ILIKE ? ESCAPE '\'`, containsPattern(*arg.Description))
	}
	query := `SELECT ` + platformColumns + ` FROM platforms` + w.sql() +
		` ORDER BY ` + arg.OrderBy.SQL(domain.PlatformSortFields)

	rows, err := q.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	platforms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Platform, error) {
		return scanPlatform(row)
	})
	return platforms, mapErr(err)
}
