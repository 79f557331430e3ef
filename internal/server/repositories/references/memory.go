package references

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	claims map[string]models.ReferenceClaim
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{claims: make(map[string]models.ReferenceClaim)}
}

func (r *MemoryRepository) Claim(_ context.Context, claim *models.ReferenceClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[claim.Reference]; ok {
		return common.ErrReferenceConsumed
	}
	if claim.ClaimedAt.IsZero() {
		claim.ClaimedAt = time.Now().UTC()
	}
	r.claims[claim.Reference] = *claim
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, reference string) (*models.ReferenceClaim, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.claims[reference]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &c, nil
}

func (r *MemoryRepository) Release(_ context.Context, reference string) error {
	r.mu.Lock()
	delete(r.claims, reference)
	r.mu.Unlock()
	return nil
}
