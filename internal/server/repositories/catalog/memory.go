package catalog

import (
	"context"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	items map[int64]models.CatalogItem
	maxID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[int64]models.CatalogItem)}
}

func (r *MemoryRepository) Append(_ context.Context, item *models.CatalogItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxID++
	item.ID = r.maxID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	r.items[item.ID] = *item
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id int64) (*models.CatalogItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, common.ErrItemNotFound
	}
	return &it, nil
}

func (r *MemoryRepository) All(ctx context.Context) iter.Seq2[*models.CatalogItem, error] {
	return func(yield func(*models.CatalogItem, error) bool) {
		r.mu.RLock()
		snapshot := make([]models.CatalogItem, 0, len(r.items))
		for _, it := range r.items {
			snapshot = append(snapshot, it)
		}
		r.mu.RUnlock()

		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

		for i := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(&snapshot[i], nil) {
				return
			}
		}
	}
}
