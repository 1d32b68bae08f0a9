package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"keyport.io/keyport/internal/domain"
)

const userColumns = `id, username, password_hash, is_admin, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	return u, err
}

const createUser = `INSERT INTO users (username, password_hash, is_admin)
VALUES ($1, $2, $3)
RETURNING ` + userColumns

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (domain.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, createUser, arg.Username, arg.PasswordHash, arg.IsAdmin))
	return u, mapErr(err)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, getUserByID, id))
	return u, mapErr(err)
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, getUserByUsername, username))
	return u, mapErr(err)
}

func (q *Queries) ListUsers(ctx context.Context, arg domain.UserListParams) ([]domain.User, error) {
	var w whereBuilder
	if arg.Username != nil {
		w.add(`username ILIKE ? ESCAPE '\'`, containsPattern(*arg.Username))
	}
	if arg.IsAdmin != nil {
		w.add(`is_admin = ?`, *arg.IsAdmin)
	}
	query := `SELECT ` + userColumns + ` FROM users` + w.sql() +
		` ORDER BY ` + arg.OrderBy.SQL(domain.UserSortFields)

	rows, err := q.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.User, error) {
		return scanUser(row)
	})
	return users, mapErr(err)
}
