package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects under a root directory. It backs local runs and
// tests, and serves deployments where the image host mounts the directory.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at root, creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = "."
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &LocalStore{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *LocalStore) Root() string {
	return s.root
}

// Put writes obj to root/key through a temporary file and a rename, so readers
// never observe a partially written image.
func (s *LocalStore) Put(ctx context.Context, obj Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(obj.Key))
	if dst != s.root && !strings.HasPrefix(dst, s.root+string(filepath.Separator)) {
		return Permanent(fmt.Errorf("key %q escapes store root", obj.Key))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return classifyLocal(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".refpix-*")
	if err != nil {
		return classifyLocal(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(obj.Body); err != nil {
		tmp.Close()
		return classifyLocal(err)
	}
	if err := tmp.Close(); err != nil {
		return classifyLocal(err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return classifyLocal(err)
	}
	return classifyLocal(os.Rename(tmp.Name(), dst))
}

func classifyLocal(err error) error {
	if errors.Is(err, os.ErrPermission) {
		return Permanent(err)
	}
	return err
}
