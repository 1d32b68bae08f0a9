package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"keyport.io/keyport/internal/domain"
)

const integrationColumns = `id, user_id, platform_id, is_active, created_at, updated_at`

func scanIntegration(row pgx.Row) (domain.Integration, error) {
	var i domain.Integration
	err := row.Scan(&i.ID, &i.UserID, &i.PlatformID, &i.IsActive, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// A concurrent insert of the same pair waits for the other transaction and
// then hits the conflict, so exactly one caller sees a returned row.
const insertIntegration = `INSERT INTO user_integrations (user_id, platform_id, is_active)
VALUES ($1, $2, $3)
ON CONFLICT ON CONSTRAINT user_integrations_user_platform_key DO NOTHING
RETURNING ` + integrationColumns

func (q *Queries) InsertIntegration(ctx context.Context, arg InsertIntegrationParams) (domain.Integration, bool, error) {
	i, err := scanIntegration(q.db.QueryRow(ctx, insertIntegration, arg.UserID, arg.PlatformID, arg.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Integration{}, false, nil
	}
	if err != nil {
		return domain.Integration{}, false, mapErr(err)
	}
	return i, true, nil
}

const getIntegration = `SELECT ` + integrationColumns + ` FROM user_integrations WHERE user_id = $1 AND platform_id = $2`

func (q *Queries) GetIntegration(ctx context.Context, userID, platformID int64) (domain.Integration, error) {
	i, err := scanIntegration(q.db.QueryRow(ctx, getIntegration, userID, platformID))
	return i, mapErr(err)
}

const getIntegrationByID = `SELECT ` + integrationColumns + ` FROM user_integrations WHERE id = $1`

func (q *Queries) GetIntegrationByID(ctx context.Context, id int64) (domain.Integration, error) {
	i, err := scanIntegration(q.db.QueryRow(ctx, getIntegrationByID, id))
	return i, mapErr(err)
}

const setIntegrationActive = `UPDATE user_integrations
SET is_active = $2, updated_at = NOW()
WHERE id = $1
RETURNING ` + integrationColumns

func (q *Queries) SetIntegrationActive(ctx context.Context, id int64, active bool) (domain.Integration, error) {
	i, err := scanIntegration(q.db.QueryRow(ctx, setIntegrationActive, id, active))
	return i, mapErr(err)
}

func (q *Queries) ListIntegrations(ctx context.Context, userID int64, arg domain.IntegrationListParams) ([]domain.Integration, error) {
	var w whereBuilder
	w.add(`user_id = ?`, userID)
	if arg.IsActive != nil {
		w.add(`is_active = ?`, *arg.IsActive)
	}
	if arg.PlatformID != nil {
		w.add(`platform_id = ?`, *arg.PlatformID)
	}
	query := `SELECT ` + integrationColumns + ` FROM user_integrations` + w.sql() +
		` ORDER BY ` + arg.OrderBy.SQL(domain.IntegrationSortFields)

	rows, err := q.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	integrations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Integration, error) {
		return scanIntegration(row)
	})
	return integrations, mapErr(err)
}
