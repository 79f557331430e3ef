// Package repomanager vends the store implementations for the configured
// storage backend.
package repomanager

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/comicvault/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/catalog"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/references"
	"github.com/dmitrijs2005/comicvault/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Accounts() accounts.Repository
	Catalog() catalog.Repository
	References() references.Repository
	Sessions() sessions.Repository
	Close() error
}

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// New returns the manager for backend. dsn is used only by postgres.
func New(ctx context.Context, backend, dsn string) (RepositoryManager, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryRepositoryManager(), nil
	case BackendPostgres:
		return NewPostgresRepositoryManager(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
