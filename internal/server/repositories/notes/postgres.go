package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		// 22P02: malformed uuid, 23503: the owner no longer exists
		case "22P02", "23503":
			return common.ErrorNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching query as a literal
// substring.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}

func (r *PostgresRepository) Create(ctx context.Context, n *models.Note) (*models.Note, error) {
	query :=
		`INSERT INTO notes (user_id, title, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, n.UserID, n.Title, n.Content).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return n, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID, query string) ([]models.Note, error) {
	q :=
		`SELECT id, user_id, title, content, created_at, updated_at FROM notes
		 WHERE user_id = $1
		   AND ($2::text = '' OR title ILIKE $3 ESCAPE '\' OR content ILIKE $3 ESCAPE '\')
		 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, userID, query, containsPattern(query))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	result := make([]models.Note, 0)
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, mapError(err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Note, error) {
	q :=
		`SELECT id, user_id, title, content, created_at, updated_at FROM notes
		 WHERE id = $1 AND user_id = $2`

	n := &models.Note{}
	err := r.db.QueryRowContext(ctx, q, id, userID).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return n, nil
}

func (r *PostgresRepository) Update(ctx context.Context, n *models.Note) (*models.Note, error) {
	q :=
		`UPDATE notes SET title = $1, content = $2, updated_at = now()
		 WHERE id = $3 AND user_id = $4
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, q, n.Title, n.Content, n.ID, n.UserID).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return n, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
