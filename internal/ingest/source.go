package ingest

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ObjectStore lists and opens source objects inside one bucket namespace.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// LocalStore reads sources from the filesystem; the bucket is ignored and
// the prefix is a file or directory path.
type LocalStore struct{}

func (LocalStore) List(ctx context.Context, _ string, root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func (LocalStore) Open(_ context.Context, _ string, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func isJSONObject(key string) bool {
	return strings.EqualFold(filepath.Ext(key), ".json")
}
