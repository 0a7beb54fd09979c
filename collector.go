package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ProgressFunc receives human-readable status updates during an ingestion.
type ProgressFunc func(message string)

// DropItem is one dropped entry: either a FileItem or a DirItem.
type DropItem interface {
	Name() string
	// FullPath is the slash-separated path of the item within the dropped structure.
	FullPath() string
}

// FileItem is a dropped entry that resolves to a file.
type FileItem interface {
	DropItem
	Handle() (FileHandle, error)
}

// DirItem is a dropped entry that resolves to a directory.
type DirItem interface {
	DropItem
	Reader() (DirReader, error)
}

// DirReader pages through a directory listing. An empty page means the
// listing is exhausted.
type DirReader interface {
	ReadEntries(ctx context.Context) ([]DropItem, error)
	Close() error
}

// Source is a repeatable ingestion input.
type Source interface {
	Collect(ctx context.Context, c *Collector) ([]FileHandle, error)
	Describe() string
}

// SelectionSource is a flat list of handles, each tagged with its relative path.
type SelectionSource struct {
	Handles []FileHandle
}

func (s SelectionSource) Collect(ctx context.Context, c *Collector) ([]FileHandle, error) {
	return c.CollectSelection(ctx, s.Handles)
}

func (s SelectionSource) Describe() string {
	return fmt.Sprintf("selection of %d file(s)", len(s.Handles))
}

// DropSource is a set of dropped files and directories.
type DropSource struct {
	Items []DropItem
}

func (s DropSource) Collect(ctx context.Context, c *Collector) ([]FileHandle, error) {
	return c.CollectDropped(ctx, s.Items)
}

func (s DropSource) Describe() string {
	names := make([]string, len(s.Items))
	for i, item := range s.Items {
		names[i] = item.Name()
	}
	return strings.Join(names, ", ")
}

// Collector turns ingestion input into a flat list of file handles.
type Collector struct {
	logger   *zap.Logger
	progress ProgressFunc
}

func newCollector(logger *zap.Logger, progress ProgressFunc) *Collector {
	return &Collector{logger: logger, progress: progress}
}

func (c *Collector) report(format string, args ...any) {
	reportProgress(c.logger, c.progress, format, args...)
}

// reportProgress forwards a progress message. A panicking callback is
// logged and never interrupts the caller.
func reportProgress(logger *zap.Logger, progress ProgressFunc, format string, args ...any) {
	if progress == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("progress callback panicked", zap.Any("panic", r), zap.String("message", msg))
		}
	}()
	progress(msg)
}

// CollectSelection passes picked handles through, replacing archives with their entries.
func (c *Collector) CollectSelection(ctx context.Context, handles []FileHandle) ([]FileHandle, error) {
	return c.expandArchives(ctx, handles)
}

// CollectDropped walks dropped files and directories, pruning ignored
// directories without descending, then expands archives.
func (c *Collector) CollectDropped(ctx context.Context, items []DropItem) ([]FileHandle, error) {
	var files []FileHandle
	for _, item := range items {
		if err := c.walkItem(ctx, item, &files); err != nil {
			return nil, err
		}
	}
	return c.expandArchives(ctx, files)
}

func (c *Collector) walkItem(ctx context.Context, item DropItem, out *[]FileHandle) error {
	switch it := item.(type) {
	case DirItem:
		if isIgnoredDir(it.Name()) {
			c.logger.Debug("pruning ignored directory", zap.String("path", it.FullPath()))
			return nil
		}
		return c.walkDir(ctx, it, out)
	case FileItem:
		h, err := it.Handle()
		if err != nil {
			return fmt.Errorf("error resolving %s: %w", it.FullPath(), err)
		}
		if h.RelativePath() == "" {
			h = withRelativePath(h, strings.TrimPrefix(it.FullPath(), "/"))
		}
		*out = append(*out, h)
		return nil
	default:
		return fmt.Errorf("unsupported drop item %T", item)
	}
}

func (c *Collector) walkDir(ctx context.Context, dir DirItem, out *[]FileHandle) error {
	reader, err := dir.Reader()
	if err != nil {
		return fmt.Errorf("error opening directory %s: %w", dir.FullPath(), err)
	}
	defer reader.Close()

	c.report("reading %s…", dir.FullPath())
	for {
		if err := checkAborted(ctx); err != nil {
			return err
		}
		batch, err := reader.ReadEntries(ctx)
		if err != nil {
			if isAborted(err) {
				return err
			}
			return fmt.Errorf("error reading directory %s: %w", dir.FullPath(), err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, entry := range batch {
			if err := c.walkItem(ctx, entry, out); err != nil {
				return err
			}
		}
	}
}

func (c *Collector) expandArchives(ctx context.Context, handles []FileHandle) ([]FileHandle, error) {
	out := make([]FileHandle, 0, len(handles))
	for _, h := range handles {
		if !isArchive(h.Name()) {
			out = append(out, h)
			continue
		}
		if err := checkAborted(ctx); err != nil {
			return nil, err
		}
		c.report("unzipping %s…", h.Name())
		expanded, err := expandArchive(ctx, h)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("expanded archive", zap.String("archive", h.Name()), zap.Int("entries", len(expanded)))
		out = append(out, expanded...)
	}
	return out, nil
}

// relPathHandle overrides the relative path of a wrapped handle.
type relPathHandle struct {
	FileHandle
	relPath string
}

func (h relPathHandle) RelativePath() string { return h.relPath }

func withRelativePath(h FileHandle, relPath string) FileHandle {
	return relPathHandle{FileHandle: h, relPath: relPath}
}
