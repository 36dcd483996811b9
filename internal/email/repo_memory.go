package email

import (
	"context"
	"sync"
)

type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]ConnectedAccount // userID -> account
}

func NewMemoryAccountRepo() *MemoryAccountRepo {
	return &MemoryAccountRepo{accounts: make(map[string]ConnectedAccount)}
}

func (r *MemoryAccountRepo) Upsert(_ context.Context, acc ConnectedAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acc.UserID] = acc
	return nil
}

func (r *MemoryAccountRepo) GetByUser(_ context.Context, userID string) (ConnectedAccount, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.accounts[userID]
	return acc, ok, nil
}

func (r *MemoryAccountRepo) DeleteByUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, userID)
	return nil
}

type MemoryRecordRepo struct {
	mu   sync.RWMutex
	rows []Record
}

func NewMemoryRecordRepo() *MemoryRecordRepo {
	return &MemoryRecordRepo{}
}

func (r *MemoryRecordRepo) Append(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, rec)
	return nil
}

func (r *MemoryRecordRepo) List(_ context.Context, workspaceID, userID string, limit int) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for i := len(r.rows) - 1; i >= 0 && len(out) < limit; i-- {
		rec := r.rows[i]
		if rec.WorkspaceID != workspaceID {
			continue
		}
		if userID != "" && rec.UserID != userID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
