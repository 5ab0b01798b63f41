package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/google/uuid"
)

type Notes struct {
	st *state
}

func (r *Notes) Create(_ context.Context, n *models.Note) (*models.Note, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.users[n.UserID]; !ok {
		return nil, common.ErrorNotFound
	}

	now := r.st.now()
	stored := *n
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.st.notes[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *Notes) List(_ context.Context, userID, query string) ([]models.Note, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	q := strings.ToLower(query)
	result := make([]models.Note, 0)
	for _, n := range r.st.notes {
		if n.UserID != userID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Content), q) {
			continue
		}
		result = append(result, *n)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Notes) Get(_ context.Context, userID, id string) (*models.Note, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	n, ok := r.st.notes[id]
	if !ok || n.UserID != userID {
		return nil, common.ErrorNotFound
	}
	out := *n
	return &out, nil
}

func (r *Notes) Update(_ context.Context, n *models.Note) (*models.Note, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.notes[n.ID]
	if !ok || stored.UserID != n.UserID {
		return nil, common.ErrorNotFound
	}
	stored.Title = n.Title
	stored.Content = n.Content
	stored.UpdatedAt = r.st.now()

	out := *stored
	return &out, nil
}

func (r *Notes) Delete(_ context.Context, userID, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	n, ok := r.st.notes[id]
	if !ok || n.UserID != userID {
		return common.ErrorNotFound
	}
	delete(r.st.notes, id)
	return nil
}
