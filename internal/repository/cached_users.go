package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/octobees/usersapi/internal/cache"
	"github.com/octobees/usersapi/internal/entity"
)

// Cache is the byte store used to memoize user projections.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

// tombstone marks a key written by Update or Delete. Fills use SetNX, so a
// read that started before the write cannot replace it with a stale row.
var tombstone = []byte("\x00invalidated")

// CachedUsersRepository serves FindByID from a cache and tombstones the
// entry on every write. Cache failures degrade to the wrapped repository.
type CachedUsersRepository struct {
	next   UsersRepository
	cache  Cache
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedUsersRepository wraps next with a read-through cache.
func NewCachedUsersRepository(next UsersRepository, c Cache, ttl time.Duration, logger zerolog.Logger) *CachedUsersRepository {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedUsersRepository{next: next, cache: c, ttl: ttl, logger: logger}
}

func userCacheKey(id int64) string {
	return "users:" + strconv.FormatInt(id, 10)
}

// List is never cached.
func (r *CachedUsersRepository) List(ctx context.Context) ([]entity.User, error) {
	return r.next.List(ctx)
}

// FindByID returns the cached projection when present. While a tombstone
// is live every read goes to the store and nothing is cached.
func (r *CachedUsersRepository) FindByID(ctx context.Context, id int64) (*entity.User, error) {
	key := userCacheKey(id)

	raw, err := r.cache.Get(ctx, key)
	switch {
	case err == nil && bytes.Equal(raw, tombstone):
	case err == nil:
		var user entity.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
		r.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	case !errors.Is(err, cache.ErrMiss):
		r.logger.Warn().Err(err).Str("key", key).Msg("user cache read failed")
	}

	user, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(user); err == nil {
		if _, err := r.cache.SetNX(ctx, key, encoded, r.ttl); err != nil {
			r.logger.Warn().Err(err).Str("key", key).Msg("user cache write failed")
		}
	}
	return user, nil
}

// FindCredentialsByEmail bypasses the cache; hashes are never cached.
func (r *CachedUsersRepository) FindCredentialsByEmail(ctx context.Context, email string) (*entity.Credentials, error) {
	return r.next.FindCredentialsByEmail(ctx, email)
}

// Update writes through and tombstones the cached entry.
func (r *CachedUsersRepository) Update(ctx context.Context, id int64, changes UserChanges) (*entity.User, error) {
	user, err := r.next.Update(ctx, id, changes)
	r.invalidate(ctx, id)
	return user, err
}

// Delete removes the row and tombstones the cached entry.
func (r *CachedUsersRepository) Delete(ctx context.Context, id int64) (*entity.DeletedUser, error) {
	deleted, err := r.next.Delete(ctx, id)
	r.invalidate(ctx, id)
	return deleted, err
}

// invalidate overwrites the entry with a tombstone that outlives any read
// started before the write.
func (r *CachedUsersRepository) invalidate(ctx context.Context, id int64) {
	if err := r.cache.Set(ctx, userCacheKey(id), tombstone, r.ttl); err != nil {
		r.logger.Warn().Err(err).Int64("user_id", id).Msg("user cache invalidation failed")
	}
}
