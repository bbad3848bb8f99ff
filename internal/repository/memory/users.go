package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"medicare-server/internal/models"
	"medicare-server/internal/repository"
)

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("create user: %w", repository.ErrDuplicate)
		}
	}
	s.stamp(&u.BaseModel)
	stored := *u
	stored.RefreshTokens = nil
	s.users[u.ID] = stored
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %s: %w", id, repository.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", repository.ErrNotFound)
}

func (r *UserRepository) List(_ context.Context, f repository.UserFilter) ([]models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.User{}
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, u *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return fmt.Errorf("update user %s: %w", u.ID, repository.ErrNotFound)
	}
	for id, existing := range s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return fmt.Errorf("update user %s: %w", u.ID, repository.ErrDuplicate)
		}
	}
	u.UpdatedAt = s.now()
	stored := *u
	stored.RefreshTokens = nil
	s.users[u.ID] = stored
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("delete user %s: %w", id, repository.ErrNotFound)
	}
	delete(s.users, id)
	for tid, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, tid)
		}
	}
	return nil
}

func (r *UserRepository) SaveRefreshToken(_ context.Context, t *models.RefreshToken) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.tokens[t.TokenID]; taken {
		return fmt.Errorf("save refresh token: %w", repository.ErrDuplicate)
	}
	s.stamp(&t.BaseModel)
	stored := *t
	stored.User = models.User{}
	s.tokens[t.TokenID] = stored
	return nil
}

func (r *UserRepository) GetRefreshToken(_ context.Context, tokenID string) (*models.RefreshToken, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenID]
	if !ok {
		return nil, fmt.Errorf("get refresh token: %w", repository.ErrNotFound)
	}
	return &t, nil
}

func (r *UserRepository) RevokeRefreshToken(_ context.Context, tokenID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[tokenID]
	if !ok || t.IsRevoked {
		return fmt.Errorf("revoke refresh token: %w", repository.ErrStale)
	}
	t.IsRevoked = true
	s.tokens[tokenID] = t
	return nil
}

func (r *UserRepository) RevokeAllRefreshTokens(_ context.Context, userID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
			s.tokens[id] = t
		}
	}
	return nil
}
