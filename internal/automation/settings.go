package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrInvalidArgument = errors.New("automation: invalid argument")

// SettingsRepository stores per-user recipe enablement flags.
type SettingsRepository interface {
	Upsert(ctx context.Context, userID, recipeID string, enabled bool, now time.Time) error
	ListEnabledRecipeIDs(ctx context.Context, userID string) ([]string, error)
}

// Settings answers "which recipes has this user switched on?".
//
// An optional Redis cache fronts the repository since the lookup sits on the
// hot path of every contact and task mutation. Only non-empty sets are cached;
// empty results always hit the repository, which keeps invalidation trivial.
type Settings struct {
	repo  SettingsRepository
	rdb   *redis.Client
	ttl   time.Duration
	log   *slog.Logger
	clock func() time.Time
}

func NewSettings(repo SettingsRepository, rdb *redis.Client, log *slog.Logger) *Settings {
	return &Settings{
		repo:  repo,
		rdb:   rdb,
		ttl:   5 * time.Minute,
		log:   log,
		clock: time.Now,
	}
}

func cacheKey(userID string) string {
	return "automation:enabled:" + userID
}

// SetEnabled flips one recipe switch for the user. The recipe must exist in
// the catalog; unknown IDs are rejected here even though the repository would
// happily store them.
func (s *Settings) SetEnabled(ctx context.Context, userID, recipeID string, enabled bool) error {
	if userID == "" || recipeID == "" {
		return ErrInvalidArgument
	}
	if _, ok := RecipeByID(recipeID); !ok {
		return fmt.Errorf("%w: unknown recipe %q", ErrInvalidArgument, recipeID)
	}
	if err := s.repo.Upsert(ctx, userID, recipeID, enabled, s.clock().UTC()); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// IsEnabled reports the current switch state for one recipe.
func (s *Settings) IsEnabled(ctx context.Context, userID, recipeID string) (bool, error) {
	set, err := s.EnabledSet(ctx, userID)
	if err != nil {
		return false, err
	}
	_, ok := set[recipeID]
	return ok, nil
}

// EnabledSet returns the user's enabled recipe IDs.
//
// A cache read error degrades to the repository; a repository error is
// returned as-is, so callers can distinguish "disabled" from "unknown".
func (s *Settings) EnabledSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if s.rdb != nil {
		ids, err := s.rdb.SMembers(ctx, cacheKey(userID)).Result()
		if err == nil && len(ids) > 0 {
			return toSet(ids), nil
		}
		if err != nil && s.log != nil {
			s.log.Warn("automation settings cache read failed", "error", err)
		}
	}

	ids, err := s.repo.ListEnabledRecipeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("automation: list enabled recipes: %w", err)
	}
	if s.rdb != nil && len(ids) > 0 {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe := s.rdb.Pipeline()
		pipe.SAdd(ctx, cacheKey(userID), members...)
		pipe.Expire(ctx, cacheKey(userID), s.ttl)
		if _, err := pipe.Exec(ctx); err != nil && s.log != nil {
			s.log.Warn("automation settings cache write failed", "error", err)
		}
	}
	return toSet(ids), nil
}

// List returns the full catalog with the user's switch state attached,
// for the settings screen.
func (s *Settings) List(ctx context.Context, userID string) ([]RecipeStatus, error) {
	set, err := s.EnabledSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]RecipeStatus, 0, len(Recipes))
	for _, r := range Recipes {
		_, on := set[r.ID]
		out = append(out, RecipeStatus{Recipe: r, Enabled: on})
	}
	return out, nil
}

// RecipeStatus pairs a catalog entry with one user's switch state.
type RecipeStatus struct {
	Recipe  Recipe `json:"recipe"`
	Enabled bool   `json:"enabled"`
}

func (s *Settings) invalidate(ctx context.Context, userID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKey(userID)).Err(); err != nil && s.log != nil {
		s.log.Warn("automation settings cache invalidation failed", "error", err)
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
