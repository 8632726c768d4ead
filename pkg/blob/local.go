package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local stores blobs as files under a root directory, one file per
// identifier. Identifiers are produced by the ingest package and are already
// filesystem-safe; anything else is rejected outright.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed and returns a disk-backed Store.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

func (l *Local) Put(ctx context.Context, identifier string, data []byte) error {
	path, err := l.path(identifier)
	if err != nil {
		return err
	}
	// Write-then-rename so a crashed write never leaves a partial blob
	// readable under the final name.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write blob %s: %w", identifier, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize blob %s: %w", identifier, err)
	}
	return nil
}

func (l *Local) Get(ctx context.Context, identifier string) ([]byte, error) {
	path, err := l.path(identifier)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob %s: %w", identifier, err)
	}
	return data, nil
}

func (l *Local) Delete(ctx context.Context, identifier string) error {
	path, err := l.path(identifier)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete blob %s: %w", identifier, err)
	}
	return nil
}

func (l *Local) path(identifier string) (string, error) {
	if identifier == "" || strings.ContainsAny(identifier, `/\`) || strings.Contains(identifier, "..") {
		return "", fmt.Errorf("invalid blob identifier %q", identifier)
	}
	return filepath.Join(l.root, identifier), nil
}
