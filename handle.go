package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"unicode/utf8"
)

// FileHandle is a readable file with a name, size and the path it was selected under.
type FileHandle interface {
	Name() string
	Size() int64
	// RelativePath may be empty when the handle was picked on its own.
	RelativePath() string
	Open() (io.ReadCloser, error)
}

// diskHandle is a file on the local filesystem.
type diskHandle struct {
	absPath string
	relPath string
	size    int64
}

func newDiskHandle(absPath, relPath string) (*diskHandle, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", absPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", absPath)
	}
	return &diskHandle{absPath: absPath, relPath: relPath, size: info.Size()}, nil
}

func (h *diskHandle) Name() string                 { return path.Base(h.relPathOrBase()) }
func (h *diskHandle) Size() int64                  { return h.size }
func (h *diskHandle) RelativePath() string         { return h.relPath }
func (h *diskHandle) Open() (io.ReadCloser, error) { return os.Open(h.absPath) }

func (h *diskHandle) relPathOrBase() string {
	if h.relPath != "" {
		return h.relPath
	}
	return strings.ReplaceAll(h.absPath, string(os.PathSeparator), "/")
}

// memoryHandle is a file whose bytes are already held in memory,
// such as an archive entry or a fetched web page.
type memoryHandle struct {
	name    string
	relPath string
	data    []byte
}

func newMemoryHandle(relPath string, data []byte) *memoryHandle {
	return &memoryHandle{name: path.Base(relPath), relPath: relPath, data: data}
}

func (h *memoryHandle) Name() string         { return h.name }
func (h *memoryHandle) Size() int64          { return int64(len(h.data)) }
func (h *memoryHandle) RelativePath() string { return h.relPath }
func (h *memoryHandle) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(h.data)), nil
}

// handlePath is the path a handle occupies in the tree: its relative path
// when present, otherwise its bare name.
func handlePath(h FileHandle) string {
	p := h.RelativePath()
	if p == "" {
		p = h.Name()
	}
	return strings.Trim(path.Clean("/"+p), "/")
}

// sniffLen is how many leading bytes are inspected for binary content.
const sniffLen = 8000

// readBytes reads a handle fully, stopping early when ctx is cancelled.
func readBytes(ctx context.Context, h FileHandle) ([]byte, error) {
	if err := checkAborted(ctx); err != nil {
		return nil, err
	}
	rc, err := h.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	if err := checkAborted(ctx); err != nil {
		return nil, err
	}
	return data, nil
}

// readText reads a handle as UTF-8 text. Invalid sequences are replaced;
// content with NUL bytes up front is rejected as binary.
func readText(ctx context.Context, h FileHandle) (string, error) {
	data, err := readBytes(ctx, h)
	if err != nil {
		return "", err
	}
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return "", fmt.Errorf("%s: %w", handlePath(h), ErrUndecodable)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
