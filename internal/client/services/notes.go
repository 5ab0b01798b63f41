package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/client/client"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
)

// NoteService exposes the caller's notes to the CLI.
type NoteService interface {
	List(ctx context.Context, query string) ([]models.Note, error)
	Add(ctx context.Context, title, content string) (*models.Note, error)
	Edit(ctx context.Context, id, title, content string) (*models.Note, error)
	Delete(ctx context.Context, id string) error
}

type noteService struct {
	client client.Client
}

func NewNoteService(c client.Client) NoteService {
	return &noteService{client: c}
}

func (s *noteService) List(ctx context.Context, query string) ([]models.Note, error) {
	return s.client.ListNotes(ctx, strings.TrimSpace(query))
}

func (s *noteService) Add(ctx context.Context, title, content string) (*models.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	return s.client.CreateNote(ctx, title, content)
}

func (s *noteService) Edit(ctx context.Context, id, title, content string) (*models.Note, error) {
	id, title = strings.TrimSpace(id), strings.TrimSpace(title)
	if id == "" || title == "" {
		return nil, fmt.Errorf("%w: id and title are required", common.ErrValidation)
	}
	return s.client.UpdateNote(ctx, id, title, content)
}

func (s *noteService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: id is required", common.ErrValidation)
	}
	return s.client.DeleteNote(ctx, id)
}
