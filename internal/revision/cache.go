package revision

import (
	"context"
	"log/slog"
	"time"

	"github.com/p-n-ai/mathboard/internal/rubric"
)

// JSONCache is the subset of the Redis cache used for latest-version lookups.
type JSONCache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedStore serves Latest from a cache and invalidates it on every write.
// Cache errors are logged and fall through to the underlying store. A miss
// costs two store reads so a concurrent write cannot leave a stale entry.
type CachedStore struct {
	Store
	cache JSONCache
	ttl   time.Duration
}

// NewCachedStore wraps store with a latest-version cache.
func NewCachedStore(store Store, cache JSONCache, ttl time.Duration) *CachedStore {
	return &CachedStore{Store: store, cache: cache, ttl: ttl}
}

func latestKey(assignmentID string) string {
	return "rubric:latest:" + assignmentID
}

func (s *CachedStore) Latest(ctx context.Context, assignmentID string) (Version, error) {
	var v Version
	hit, err := s.cache.GetJSON(ctx, latestKey(assignmentID), &v)
	if err != nil {
		slog.Warn("rubric cache read failed", "assignment_id", assignmentID, "error", err)
	}
	if hit {
		return v, nil
	}

	v, err = s.Store.Latest(ctx, assignmentID)
	if err != nil {
		return Version{}, err
	}
	if err := s.cache.SetJSON(ctx, latestKey(assignmentID), v, s.ttl); err != nil {
		slog.Warn("rubric cache write failed", "assignment_id", assignmentID, "error", err)
		return v, nil
	}

	// A write that committed and invalidated between the load and the set
	// would leave v cached until the TTL. Writers commit before they
	// invalidate, so re-reading after the set sees any such write.
	if cur, err := s.Store.Latest(ctx, assignmentID); err != nil || cur.Version != v.Version {
		s.invalidate(ctx, assignmentID)
	}
	return v, nil
}

func (s *CachedStore) Create(ctx context.Context, assignmentID string, r rubric.Rubric) (Version, error) {
	v, err := s.Store.Create(ctx, assignmentID, r)
	s.invalidate(ctx, assignmentID)
	return v, err
}

func (s *CachedStore) Append(ctx context.Context, r rubric.Rubric, change Change) (Version, error) {
	v, err := s.Store.Append(ctx, r, change)
	s.invalidate(ctx, change.AssignmentID)
	return v, err
}

func (s *CachedStore) invalidate(ctx context.Context, assignmentID string) {
	if err := s.cache.Delete(ctx, latestKey(assignmentID)); err != nil {
		slog.Warn("rubric cache invalidate failed", "assignment_id", assignmentID, "error", err)
	}
}
