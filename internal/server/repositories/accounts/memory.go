package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/server/models"
)

// MemoryRepository keeps accounts in a map guarded by a single RWMutex.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]models.Account
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]models.Account)}
}

func (r *MemoryRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[account.Username]; ok {
		return common.ErrAlreadyExists
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	r.items[account.Username] = *account
	r.order = append(r.order, account.Username)
	return nil
}

func (r *MemoryRepository) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &a, nil
}

// FindByEmail returns the earliest registered account with the given email.
func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		if a := r.items[name]; a.Email == email {
			return &a, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) ConfirmByTokenHash(_ context.Context, tokenHash string) (string, error) {
	if tokenHash == "" {
		return "", common.ErrTokenInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for name, a := range r.items {
		if a.Status == models.StatusPendingVerification && a.VerificationTokenHash == tokenHash {
			a.Status = models.StatusVerified
			a.VerificationTokenHash = ""
			r.items[name] = a
			return name, nil
		}
	}
	return "", common.ErrTokenInvalid
}
