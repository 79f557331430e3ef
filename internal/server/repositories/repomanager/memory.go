package repomanager

import (
	"context"

	"github.com/dmitrijs2005/comicvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/references"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/sessions"
)

// MemoryRepositoryManager holds process-local stores. Data is lost on exit.
type MemoryRepositoryManager struct {
	accounts   *accounts.MemoryRepository
	catalog    *catalog.MemoryRepository
	references *references.MemoryRepository
	sessions   *sessions.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		accounts:   accounts.NewMemoryRepository(),
		catalog:    catalog.NewMemoryRepository(),
		references: references.NewMemoryRepository(),
		sessions:   sessions.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Accounts() accounts.Repository     { return m.accounts }
func (m *MemoryRepositoryManager) Catalog() catalog.Repository       { return m.catalog }
func (m *MemoryRepositoryManager) References() references.Repository { return m.references }
func (m *MemoryRepositoryManager) Sessions() sessions.Repository     { return m.sessions }
func (m *MemoryRepositoryManager) Close() error                      { return nil }
