package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"
)

// readDirBatch is how many entries a disk directory reader returns per page.
const readDirBatch = 100

// newDiskItem resolves a local path to a drop item rooted at its base name.
// When ignore is non-nil, entries it matches are left out of directory listings.
func newDiskItem(p string, ignore gitignore.IgnoreMatcher) (DropItem, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, fmt.Errorf("error resolving path %s: %w", p, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", p, err)
	}
	full := "/" + filepath.Base(abs)
	if info.IsDir() {
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("error resolving path %s: %w", p, err)
		}
		return &diskDirItem{absPath: abs, fullPath: full, ignore: ignore, realChain: []string{resolved}}, nil
	}
	return &diskFileItem{absPath: abs, fullPath: full}, nil
}

type diskFileItem struct {
	absPath  string
	fullPath string
}

func (it *diskFileItem) Name() string     { return filepath.Base(it.absPath) }
func (it *diskFileItem) FullPath() string { return it.fullPath }

func (it *diskFileItem) Handle() (FileHandle, error) {
	return newDiskHandle(it.absPath, strings.TrimPrefix(it.fullPath, "/"))
}

type diskDirItem struct {
	absPath  string
	fullPath string
	ignore   gitignore.IgnoreMatcher

	// realChain holds the resolved paths from the walk root down to this directory.
	realChain []string
}

func (it *diskDirItem) Name() string     { return filepath.Base(it.absPath) }
func (it *diskDirItem) FullPath() string { return it.fullPath }

func (it *diskDirItem) realPath() string {
	if len(it.realChain) == 0 {
		return it.absPath
	}
	return it.realChain[len(it.realChain)-1]
}

func (it *diskDirItem) Reader() (DirReader, error) {
	f, err := os.Open(it.absPath)
	if err != nil {
		return nil, err
	}
	return &diskDirReader{dir: f, parent: it}, nil
}

// diskDirReader pages through a directory with (*os.File).ReadDir.
type diskDirReader struct {
	dir    *os.File
	parent *diskDirItem
}

func (r *diskDirReader) ReadEntries(ctx context.Context) ([]DropItem, error) {
	if err := checkAborted(ctx); err != nil {
		return nil, err
	}
	entries, err := r.dir.ReadDir(readDirBatch)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	items := make([]DropItem, 0, len(entries))
	for _, e := range entries {
		abs := filepath.Join(r.parent.absPath, e.Name())
		full := r.parent.fullPath + "/" + e.Name()
		isDir := e.IsDir()
		resolved := filepath.Join(r.parent.realPath(), e.Name())
		if e.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(abs)
			if statErr != nil {
				continue
			}
			isDir = info.IsDir()
			if isDir {
				if resolved, statErr = filepath.EvalSymlinks(abs); statErr != nil {
					continue
				}
				// A link back to a directory being walked would recurse forever.
				if slices.Contains(r.parent.realChain, resolved) {
					continue
				}
			}
		}
		if r.parent.ignore != nil && r.parent.ignore.Match(abs, isDir) {
			continue
		}
		if isDir {
			items = append(items, &diskDirItem{
				absPath:   abs,
				fullPath:  full,
				ignore:    r.parent.ignore,
				realChain: slices.Concat(r.parent.realChain, []string{resolved}),
			})
		} else {
			items = append(items, &diskFileItem{absPath: abs, fullPath: full})
		}
	}
	return items, nil
}

func (r *diskDirReader) Close() error { return r.dir.Close() }

// handleItem adapts an existing handle, such as a fetched web page, into a drop item.
type handleItem struct {
	h FileHandle
}

func (it handleItem) Name() string                { return it.h.Name() }
func (it handleItem) FullPath() string            { return "/" + handlePath(it.h) }
func (it handleItem) Handle() (FileHandle, error) { return it.h, nil }

// loadGitignore returns a matcher for root/.gitignore, or nil when there is none.
// Matching is done on absolute paths, so root is resolved first.
func loadGitignore(root string, logger *zap.Logger) gitignore.IgnoreMatcher {
	abs, err := filepath.Abs(root)
	if err != nil {
		logger.Warn("could not resolve directory", zap.String("path", root), zap.Error(err))
		return nil
	}
	gitIgnorePath := filepath.Join(abs, ".gitignore")
	if _, err := os.Stat(gitIgnorePath); err != nil {
		return nil
	}
	matcher, err := gitignore.NewGitIgnore(gitIgnorePath)
	if err != nil {
		logger.Warn("could not parse .gitignore", zap.String("path", gitIgnorePath), zap.Error(err))
		return nil
	}
	return matcher
}
