package blobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/comicvault/internal/common"
	"github.com/dmitrijs2005/comicvault/internal/filex"
)

// maxRenames bounds the name-N probing in LocalStore.Put.
const maxRenames = 10000

// LocalStore keeps assets as files in one directory. The reference is the
// final file name.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs}, nil
}

// Put creates the file exclusively. When name is taken it tries name-1,
// name-2 and so on.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	base := filex.SanitizeName(name)
	if base == "" {
		return "", common.ErrMissingFields
	}

	for n := 0; n < maxRenames; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := filex.NthName(base, n)
		f, err := os.OpenFile(filepath.Join(s.dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", candidate, err)
		}

		if _, err := io.Copy(f, r); err != nil {
			f.Close()
			_ = os.Remove(f.Name())
			return "", fmt.Errorf("write %s: %w", candidate, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(f.Name())
			return "", fmt.Errorf("close %s: %w", candidate, err)
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%w: %s", common.ErrAssetExists, base)
}

func (s *LocalStore) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return "", common.ErrNotFound
	}
	return filepath.Join(s.dir, ref), nil
}

func (s *LocalStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	return f, nil
}

func (s *LocalStore) Delete(_ context.Context, ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", ref, err)
	}
	return nil
}
