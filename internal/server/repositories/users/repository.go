// Package users is the credential store: user records, password hashes and
// the single live refresh token per user.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/server/models"
)

// Repository defines the persistence contract for users. Lookups are
// exact-match. Missing rows are reported as common.ErrorNotFound.
type Repository interface {
	// Create inserts u and fills its generated fields. A taken email is
	// reported as common.ErrDuplicateEmail.
	Create(ctx context.Context, u *models.User) (*models.User, error)

	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByRefreshToken returns the user whose stored refresh token equals
	// token.
	FindByRefreshToken(ctx context.Context, token string) (*models.User, error)

	// SetRefreshToken replaces the stored refresh token when the row is
	// still at expectedVersion and returns the new version. An empty token
	// clears it. A moved version yields common.ErrVersionConflict.
	SetRefreshToken(ctx context.Context, userID, token string, expectedVersion int64) (int64, error)

	// ClearRefreshToken removes the stored token only if it is still token.
	ClearRefreshToken(ctx context.Context, userID, token string) error

	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}
