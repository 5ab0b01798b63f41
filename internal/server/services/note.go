package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
)

type NoteInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteService is plain owner-scoped CRUD behind the bearer check.
type NoteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewNoteService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *NoteService {
	return &NoteService{db: db, repomanager: m, logger: logger.With("module", "note_service")}
}

func (s *NoteService) List(ctx context.Context, userID, query string) ([]models.Note, error) {
	notes, err := s.repomanager.Notes(s.db).List(ctx, userID, strings.TrimSpace(query))
	if err != nil {
		return nil, passOrInternal(ctx, s.logger, "list notes", err)
	}
	return notes, nil
}

func (s *NoteService) Create(ctx context.Context, userID string, in NoteInput) (*models.Note, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	n, err := s.repomanager.Notes(s.db).Create(ctx, &models.Note{
		UserID:  userID,
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
	})
	if err != nil {
		return nil, passOrInternal(ctx, s.logger, "create note", err)
	}
	return n, nil
}

func (s *NoteService) Update(ctx context.Context, userID, id string, in NoteInput) (*models.Note, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	n, err := s.repomanager.Notes(s.db).Update(ctx, &models.Note{
		ID:      id,
		UserID:  userID,
		Title:   strings.TrimSpace(in.Title),
		Content: in.Content,
	})
	if err != nil {
		return nil, passOrInternal(ctx, s.logger, "update note", err)
	}
	return n, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repomanager.Notes(s.db).Delete(ctx, userID, id); err != nil {
		return passOrInternal(ctx, s.logger, "delete note", err)
	}
	return nil
}

func (in NoteInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	return nil
}
