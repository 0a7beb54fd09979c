package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memFiles builds in-memory handles from relative path -> content.
func memFiles(files map[string]string) []FileHandle {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	handles := make([]FileHandle, 0, len(paths))
	for _, p := range paths {
		handles = append(handles, newMemoryHandle(p, []byte(files[p])))
	}
	return handles
}

func handlePaths(handles []FileHandle) []string {
	paths := make([]string, len(handles))
	for i, h := range handles {
		paths[i] = handlePath(h)
	}
	sort.Strings(paths)
	return paths
}

func contentPaths(contents []FileContent) []string {
	paths := make([]string, len(contents))
	for i, fc := range contents {
		paths[i] = fc.Path
	}
	return paths
}

// setupTestDir writes relative path -> content below a fresh temp dir.
func setupTestDir(t *testing.T, structure map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range structure {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return dir
}

// zipBytes builds a zip archive in memory from entry name -> content.
// Names ending in "/" become directory entries.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func testBuilder() *Builder {
	return newBuilder(zap.NewNop(), newLanguageClassifier(nil))
}

func testSession(opts BuildOptions) *Session {
	logger := zap.NewNop()
	return newSession(logger, newCollector(logger, nil), newBuilder(logger, newLanguageClassifier(nil)), opts, nil)
}

func defaultOpts() BuildOptions {
	return BuildOptions{ExtractContent: true}
}

// fakeFile is an in-memory FileItem.
type fakeFile struct {
	name     string
	fullPath string
	data     string
}

func (f *fakeFile) Name() string     { return f.name }
func (f *fakeFile) FullPath() string { return f.fullPath }
func (f *fakeFile) Handle() (FileHandle, error) {
	return &namedHandle{memoryHandle: newMemoryHandle(f.name, []byte(f.data))}, nil
}

// namedHandle is a handle picked without a relative path.
type namedHandle struct {
	*memoryHandle
}

func (h *namedHandle) RelativePath() string { return "" }

// fakeDir is an in-memory DirItem whose reader returns pageSize entries at a time.
type fakeDir struct {
	name        string
	fullPath    string
	children    []DropItem
	pageSize    int
	readerCalls int
	pagesRead   int
}

func (d *fakeDir) Name() string     { return d.name }
func (d *fakeDir) FullPath() string { return d.fullPath }
func (d *fakeDir) Reader() (DirReader, error) {
	d.readerCalls++
	return &fakeDirReader{dir: d}, nil
}

type fakeDirReader struct {
	dir *fakeDir
	pos int
}

func (r *fakeDirReader) ReadEntries(ctx context.Context) ([]DropItem, error) {
	if err := checkAborted(ctx); err != nil {
		return nil, err
	}
	size := r.dir.pageSize
	if size <= 0 {
		size = len(r.dir.children)
	}
	end := min(r.pos+size, len(r.dir.children))
	page := r.dir.children[r.pos:end]
	r.pos = end
	if len(page) > 0 {
		r.dir.pagesRead++
	}
	return page, nil
}

func (r *fakeDirReader) Close() error { return nil }

// dropDir and dropFile build a fake dropped structure; the argument is the parent's full path.
func dropDir(name string, children ...func(string) DropItem) func(string) DropItem {
	return func(prefix string) DropItem {
		full := prefix + "/" + name
		d := &fakeDir{name: name, fullPath: full}
		for _, c := range children {
			d.children = append(d.children, c(full))
		}
		return d
	}
}

func dropFile(name, data string) func(string) DropItem {
	return func(prefix string) DropItem {
		return &fakeFile{name: name, fullPath: prefix + "/" + name, data: data}
	}
}

// failingHandle fails on Open.
type failingHandle struct {
	path string
}

func (h failingHandle) Name() string                 { return filepath.Base(h.path) }
func (h failingHandle) Size() int64                  { return 1 }
func (h failingHandle) RelativePath() string         { return h.path }
func (h failingHandle) Open() (io.ReadCloser, error) { return nil, errors.New("permission denied") }

// blockingSource waits in Collect until ctx is done or release is closed.
type blockingSource struct {
	handles []FileHandle
	started chan struct{}
	release chan struct{}
}

func newBlockingSource(handles []FileHandle) *blockingSource {
	return &blockingSource{handles: handles, started: make(chan struct{}), release: make(chan struct{})}
}

func (s *blockingSource) Collect(ctx context.Context, _ *Collector) ([]FileHandle, error) {
	close(s.started)
	select {
	case <-ctx.Done():
		return nil, aborted(ctx)
	case <-s.release:
		return s.handles, nil
	}
}

func (s *blockingSource) Describe() string { return "blocking" }

// cancellingHandle cancels ctx the first time it is opened.
type cancellingHandle struct {
	*memoryHandle
	cancel context.CancelFunc
}

func (h *cancellingHandle) Open() (io.ReadCloser, error) {
	h.cancel()
	return h.memoryHandle.Open()
}
