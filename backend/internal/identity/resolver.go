// Package identity maps provider logins onto internal users and manages
// profiles, provider userinfo lookups and session tokens.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eranmadhuka/thinkflow/backend/internal/domain"
	"github.com/eranmadhuka/thinkflow/backend/internal/lock"
	"github.com/eranmadhuka/thinkflow/backend/internal/store"
	apperrors "github.com/eranmadhuka/thinkflow/backend/pkg/errors"
)

// Resolver finds or creates the user behind a provider login
type Resolver struct {
	users  store.UserStore
	locker lock.Locker
	logger *zap.Logger
}

// NewResolver creates a resolver. Logins of the same identity are serialized
// through locker so a first login cannot create two users.
func NewResolver(users store.UserStore, locker lock.Locker, log *zap.Logger) *Resolver {
	return &Resolver{users: users, locker: locker, logger: log.Named("identity")}
}

// Resolve returns the single user for pi. Lookup order is provider identity,
// then email (linking the new identity), then creation. Email is always
// refreshed when the provider vouches for one, the picture only when empty;
// name, bio and status are left alone.
func (r *Resolver) Resolve(ctx context.Context, pi domain.ProviderIdentity) (*domain.User, error) {
	if strings.TrimSpace(pi.ProviderID) == "" {
		return nil, apperrors.NewUnauthenticated("provider returned no stable identifier", nil)
	}
	if pi.Provider == "" {
		return nil, apperrors.NewUnauthenticated("provider is not set", nil)
	}

	release, err := r.locker.Lock(ctx, "identity:"+pi.Provider+":"+pi.ProviderID)
	if err != nil {
		return nil, lock.AcquireError(ctx, "acquire identity lock", err)
	}
	defer release()

	u, err := r.users.FindByIdentity(ctx, pi.Provider, pi.ProviderID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NewStoreFailed("find by identity", err)
	}

	if u == nil {
		u, err = r.users.FindByEmail(ctx, pi.Email)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NewStoreFailed("find by email", err)
		}
		if u != nil {
			u.Identities = append(u.Identities, domain.Identity{Provider: pi.Provider, ProviderID: pi.ProviderID})
			r.logger.Info("Linked login method to existing user",
				zap.String("user_id", u.ID),
				zap.String("provider", pi.Provider),
			)
		}
	}

	if u == nil {
		u = domain.NewUser(pi)
		if err := r.users.CreateUser(ctx, u); err != nil {
			return nil, apperrors.NewStoreFailed("create user", err)
		}
		r.logger.Info("Created user",
			zap.String("user_id", u.ID),
			zap.String("provider", pi.Provider),
		)
		return u, nil
	}

	syncFields(u, pi)
	if err := r.users.UpdateUser(ctx, u); err != nil {
		return nil, apperrors.NewStoreFailed("update user", err)
	}
	return u, nil
}

// syncFields applies the provider-owned fields of an existing user
func syncFields(u *domain.User, pi domain.ProviderIdentity) {
	if pi.Email != "" {
		u.Email = pi.Email
	}
	if u.Picture == "" {
		u.Picture = pi.Picture
	}
	u.UpdatedAt = time.Now().UTC()
}
