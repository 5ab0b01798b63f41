package users

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation   = "23505"
	invalidTextFormat = "22P02"
)

const userColumns = `id, name, email, gender, password_hash, refresh_token_hash, token_version, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// HashToken is the at-rest form of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var refresh sql.NullString
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Gender, &u.PasswordHash,
		&refresh, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.RefreshTokenHash = refresh.String
	return u, nil
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return common.ErrDuplicateEmail
		case invalidTextFormat:
			// malformed uuid in a lookup
			return common.ErrorNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (name, email, gender, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, token_version, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Gender, u.PasswordHash).
		Scan(&u.ID, &u.TokenVersion, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, "refresh_token_hash", HashToken(token))
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, userID, token string, expectedVersion int64) (int64, error) {
	query :=
		`UPDATE users SET refresh_token_hash = $1, token_version = token_version + 1
		 WHERE id = $2 AND token_version = $3
		 RETURNING token_version`

	var stored sql.NullString
	if token != "" {
		stored = sql.NullString{String: HashToken(token), Valid: true}
	}

	var version int64
	err := r.db.QueryRowContext(ctx, query, stored, userID, expectedVersion).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, common.ErrVersionConflict
	}
	if err != nil {
		return 0, mapError(err)
	}
	return version, nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, userID, token string) error {
	query :=
		`UPDATE users SET refresh_token_hash = NULL, token_version = token_version + 1
		 WHERE id = $1 AND refresh_token_hash = $2`

	res, err := r.db.ExecContext(ctx, query, userID, HashToken(token))
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError(err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (r *PostgresRepository) Update(ctx context.Context, u *models.User) (*models.User, error) {
	query :=
		`UPDATE users SET name = $1, email = $2, gender = $3, password_hash = $4, updated_at = now()
		 WHERE id = $5
		 RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, u.Name, u.Email, u.Gender, u.PasswordHash, u.ID).Scan(&u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
