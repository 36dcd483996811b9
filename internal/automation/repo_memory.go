package automation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySettingsRepo is an in-memory SettingsRepository for tests and local
// development.
type MemorySettingsRepo struct {
	mu   sync.RWMutex
	rows map[string]map[string]bool // userID -> recipeID -> enabled
}

func NewMemorySettingsRepo() *MemorySettingsRepo {
	return &MemorySettingsRepo{rows: make(map[string]map[string]bool)}
}

func (r *MemorySettingsRepo) Upsert(_ context.Context, userID, recipeID string, enabled bool, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows[userID] == nil {
		r.rows[userID] = make(map[string]bool)
	}
	r.rows[userID][recipeID] = enabled
	return nil
}

func (r *MemorySettingsRepo) ListEnabledRecipeIDs(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, on := range r.rows[userID] {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
