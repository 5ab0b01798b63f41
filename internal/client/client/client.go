package client

import (
	"context"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
)

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
	Password string `json:"password"`
}

// Client is the API surface used by the CLI services.
type Client interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (string, error)
	Ping(ctx context.Context) error

	ListNotes(ctx context.Context, query string) ([]models.Note, error)
	CreateNote(ctx context.Context, title, content string) (*models.Note, error)
	UpdateNote(ctx context.Context, id, title, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, id string) error

	// RefreshCookie exposes the current refresh cookie value so the session
	// can be persisted; RestoreRefreshCookie puts a saved one back.
	RefreshCookie() string
	RestoreRefreshCookie(value string)

	// OnTokenRefreshed registers fn to be called with every access token
	// obtained through Refresh.
	OnTokenRefreshed(fn func(token string))
}
