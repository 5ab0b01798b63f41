// Package notes stores the notes owned by each user.
package notes

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
)

// Repository defines owner-scoped note persistence. Every method takes the
// owner's id; a note belonging to someone else is reported as
// common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, n *models.Note) (*models.Note, error)

	// List returns the owner's notes, newest first. A non-empty query keeps
	// notes whose title or content contains it, case-insensitively.
	List(ctx context.Context, userID, query string) ([]models.Note, error)

	Get(ctx context.Context, userID, id string) (*models.Note, error)
	Update(ctx context.Context, n *models.Note) (*models.Note, error)
	Delete(ctx context.Context, userID, id string) error
}
