package repository

import (
	"context"
	"time"
)

const insertAuditLog = `INSERT INTO audit_logs (action, resource_type, resource_id, actor, details)
VALUES ($1, $2, $3, $4, $5)`

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) error {
	details := arg.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := q.db.Exec(ctx, insertAuditLog, arg.Action, arg.ResourceType, arg.ResourceID, arg.Actor, details)
	return mapErr(err)
}

const deleteAuditLogsBefore = `DELETE FROM audit_logs WHERE created_at < $1`

func (q *Queries) DeleteAuditLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteAuditLogsBefore, cutoff)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
