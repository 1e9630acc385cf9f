package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Profiles serves user lookups and owner-only profile edits
type Profiles struct {
	users  store.UserStore
	logger *zap.Logger
}

// NewProfiles creates the profile service
func NewProfiles(users store.UserStore, log *zap.Logger) *Profiles {
	return &Profiles{users: users, logger: log.Named("profiles")}
}

// Get loads a user by id
func (p *Profiles) Get(ctx context.Context, userID string) (*domain.User, error) {
	u, err := p.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", userID)
		}
		return nil, apperrors.NewStoreFailed("get user", err)
	}
	return u, nil
}

// Update applies the caller's edits to their own profile
func (p *Profiles) Update(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.User, error) {
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, apperrors.NewInvalid("name", "must not be empty")
	}
	u, err := p.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	upd.Apply(u)
	if err := p.users.UpdateUser(ctx, u); err != nil {
		return nil, apperrors.NewStoreFailed("update user", err)
	}
	p.logger.Info("Profile updated", zap.String("user_id", userID))
	return u, nil
}

// Details loads several users at once; unknown ids are skipped
func (p *Profiles) Details(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	users, err := p.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, apperrors.NewStoreFailed("get users", err)
	}
	return users, nil
}

// Search matches name and email substrings case-insensitively, never returning the caller
func (p *Profiles) Search(ctx context.Context, callerID, name, email string) ([]domain.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" && email == "" {
		return nil, apperrors.NewInvalid("query", "name or email is required")
	}
	users, err := p.users.SearchUsers(ctx, store.UserQuery{Name: name, Email: email, ExcludeID: callerID})
	if err != nil {
		return nil, apperrors.NewStoreFailed("search users", err)
	}
	return users, nil
}
