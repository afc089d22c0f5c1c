package postgresql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/dberror"
	"github.com/tansive/datacatalog/internal/catalogsrv/db/models"
	"github.com/tansive/datacatalog/internal/common/apperrors"
)

const userColumns = `user_id, username, email, password_hash, role, status, api_key, created_at, updated_at, last_login`

func scanUser(r rowScanner) (*models.User, error) {
	var (
		u         models.User
		apiKey    sql.NullString
		lastLogin sql.NullTime
	)
	if err := r.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status,
		&apiKey, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.APIKey = apiKey.String
	u.LastLogin = timePtr(lastLogin)
	return &u, nil
}

func userConflict(err error) apperrors.Error {
	pgErr, ok := uniqueViolation(err)
	if !ok {
		return nil
	}
	switch pgErr.ConstraintName {
	case "users_username_key":
		return dberror.ErrAlreadyExists.Msg("username already exists")
	case "users_email_key":
		return dberror.ErrAlreadyExists.Msg("email already exists")
	case "users_api_key_key":
		return dberror.ErrAlreadyExists.Msg("api key already in use")
	}
	return dberror.ErrAlreadyExists.Msg("user already exists")
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) apperrors.Error {
	if u == nil || u.ID == uuid.Nil {
		return dberror.ErrInvalidInput.Msg("user id is required")
	}
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.conn(ctx).ExecContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash, u.Role,
		u.Status, nullString(u.APIKey), u.CreatedAt, u.UpdatedAt, nullTime(u.LastLogin))
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return dbErr(ctx, err, "failed to insert user")
	}
	return nil
}

func (s *Store) getUserBy(ctx context.Context, column string, value any) (*models.User, apperrors.Error) {
	// column is one of a fixed set of identifiers chosen by the caller below
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	u, err := scanUser(s.conn(ctx).QueryRowContext(ctx, query, value))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("user not found")
		}
		return nil, dbErr(ctx, err, "failed to get user")
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, apperrors.Error) {
	return s.getUserBy(ctx, "user_id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, apperrors.Error) {
	return s.getUserBy(ctx, "username", username)
}

func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, apperrors.Error) {
	if apiKey == "" {
		return nil, dberror.ErrNotFound.Msg("user not found")
	}
	return s.getUserBy(ctx, "api_key", apiKey)
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) apperrors.Error {
	query := `UPDATE users SET username = $2, email = $3, password_hash = $4, role = $5, status = $6,
			api_key = $7, updated_at = $8, last_login = $9
		WHERE user_id = $1`
	result, err := s.conn(ctx).ExecContext(ctx, query, u.ID, u.Username, u.Email, u.PasswordHash,
		u.Role, u.Status, nullString(u.APIKey), u.UpdatedAt, nullTime(u.LastLogin))
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return dbErr(ctx, err, "failed to update user")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return dbErr(ctx, err, "failed to update user")
	}
	if n == 0 {
		return dberror.ErrNotFound.Msg("user not found")
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context, q models.UserQuery) ([]*models.User, apperrors.Error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if q.Status != "" {
		query += ` WHERE status = $1`
		args = append(args, q.Status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(ctx, err, "failed to list users")
	}
	defer rows.Close()
	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbErr(ctx, err, "failed to scan user")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(ctx, err, "failed to iterate users")
	}
	return users, nil
}
