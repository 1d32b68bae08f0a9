package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"keyport.io/keyport/internal/domain"
)

const credentialColumns = `id, user_id, platform_id, integration_id, key, value, created_at`

func scanCredential(row pgx.Row) (domain.CredentialDetail, error) {
	var c domain.CredentialDetail
	err := row.Scan(&c.ID, &c.UserID, &c.PlatformID, &c.IntegrationID, &c.Key, &c.SealedValue, &c.CreatedAt)
	return c, err
}

func collectCredentials(rows pgx.Rows) ([]domain.CredentialDetail, error) {
	creds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CredentialDetail, error) {
		return scanCredential(row)
	})
	return creds, mapErr(err)
}

const createCredential = `INSERT INTO credential_details (user_id, platform_id, integration_id, key, value)
SELECT i.user_id, i.platform_id, i.id, $2, $3
FROM user_integrations i
WHERE i.id = $1
RETURNING ` + credentialColumns

func (q *Queries) CreateCredential(ctx context.Context, arg CreateCredentialParams) (domain.CredentialDetail, error) {
	c, err := scanCredential(q.db.QueryRow(ctx, createCredential, arg.IntegrationID, arg.Key, arg.SealedValue))
	return c, mapErr(err)
}

func (q *Queries) ListCredentials(ctx context.Context, arg domain.CredentialListParams) ([]domain.CredentialDetail, error) {
	var w whereBuilder
	w.add(`user_id = ?`, arg.UserID)
	w.add(`platform_id = ?`, arg.PlatformID)
	if arg.Key != nil {
		w.add(`key = ?`, *arg.Key)
	}
	query := `SELECT ` + credentialColumns + ` FROM credential_details` + w.sql() +
		` ORDER BY ` + arg.OrderBy.SQL(domain.CredentialSortFields)

	rows, err := q.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectCredentials(rows)
}

const listCredentialsByIntegrations = `SELECT ` + credentialColumns + `
FROM credential_details
WHERE integration_id = ANY($1)
ORDER BY integration_id, id`

func (q *Queries) ListCredentialsByIntegrations(ctx context.Context, integrationIDs []int64) ([]domain.CredentialDetail, error) {
	if len(integrationIDs) == 0 {
		return nil, nil
	}
	rows, err := q.db.Query(ctx, listCredentialsByIntegrations, integrationIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectCredentials(rows)
}
