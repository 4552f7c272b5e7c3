package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/entity"
)

// HistoryRepository implements port.HistoryRepository in memory
type HistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]entity.DecisionHistory
}

// NewHistoryRepository creates an empty history repository
func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{entries: make(map[string][]entity.DecisionHistory)}
}

func (r *HistoryRepository) Create(ctx context.Context, h *entity.DecisionHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[h.EntityID] = append(r.entries[h.EntityID], *h)
	return nil
}

// GetByEntityID returns entries oldest first
func (r *HistoryRepository) GetByEntityID(ctx context.Context, entityID string) ([]*entity.DecisionHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.entries[entityID]
	out := make([]*entity.DecisionHistory, len(list))
	for i := range list {
		h := list[i]
		out[i] = &h
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// TxManager serializes transactional blocks; nested calls run inline
type TxManager struct {
	mu sync.Mutex
}

// NewTxManager creates a TxManager
func NewTxManager() *TxManager {
	return &TxManager{}
}

type txKey struct{}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

var (
	_ port.HistoryRepository  = (*HistoryRepository)(nil)
	_ port.TransactionManager = (*TxManager)(nil)
)
