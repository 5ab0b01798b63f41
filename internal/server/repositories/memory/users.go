package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/users"
	"github.com/google/uuid"
)

type Users struct {
	st *state
}

func (r *Users) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if r.emailTaken(u.Email, "") {
		return nil, common.ErrDuplicateEmail
	}

	now := r.st.now()
	stored := *u
	stored.ID = uuid.NewString()
	stored.TokenVersion = 0
	stored.RefreshTokenHash = ""
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.st.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (r *Users) FindByID(_ context.Context, id string) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *Users) FindByRefreshToken(_ context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}
	hash := users.HashToken(token)

	r.st.mu.RLock()
	defer r.st.mu.RUnlock()
	return r.find(func(u *models.User) bool { return u.RefreshTokenHash == hash })
}

func (r *Users) SetRefreshToken(_ context.Context, userID, token string, expectedVersion int64) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	u, ok := r.st.users[userID]
	if !ok || u.TokenVersion != expectedVersion {
		return 0, common.ErrVersionConflict
	}
	u.RefreshTokenHash = ""
	if token != "" {
		u.RefreshTokenHash = users.HashToken(token)
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (r *Users) ClearRefreshToken(_ context.Context, userID, token string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	u, ok := r.st.users[userID]
	if !ok || u.RefreshTokenHash == "" || u.RefreshTokenHash != users.HashToken(token) {
		return common.ErrorNotFound
	}
	u.RefreshTokenHash = ""
	u.TokenVersion++
	return nil
}

func (r *Users) List(_ context.Context) ([]models.User, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	result := make([]models.User, 0, len(r.st.users))
	for _, u := range r.st.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *Users) Update(_ context.Context, u *models.User) (*models.User, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.users[u.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return nil, common.ErrDuplicateEmail
	}

	stored.Name = u.Name
	stored.Email = u.Email
	stored.Gender = u.Gender
	stored.PasswordHash = u.PasswordHash
	stored.UpdatedAt = r.st.now()

	out := *stored
	return &out, nil
}

func (r *Users) Delete(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.st.users, id)
	for nid, n := range r.st.notes {
		if n.UserID == id {
			delete(r.st.notes, nid)
		}
	}
	return nil
}

// find must be called with the lock held.
func (r *Users) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range r.st.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *Users) emailTaken(email, exceptID string) bool {
	for _, u := range r.st.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}
