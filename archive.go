package main

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

const archiveExt = ".zip"

// isArchive reports whether a file name ends in .zip, ignoring case.
func isArchive(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), archiveExt)
}

// archiveRoot strips the .zip suffix from an archive name.
func archiveRoot(name string) string {
	if isArchive(name) {
		return name[:len(name)-len(archiveExt)]
	}
	return name
}

// expandArchive decompresses every regular entry of a zip archive into memory.
// Each entry is placed under "<archive name without .zip>/<entry path>".
// Expansion is all or nothing: any unreadable entry fails the whole archive.
func expandArchive(ctx context.Context, archive FileHandle) ([]FileHandle, error) {
	data, err := readBytes(ctx, archive)
	if err != nil {
		if isAborted(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w %s: %v", ErrArchiveRead, archive.Name(), err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrArchiveRead, archive.Name(), err)
	}

	root := archiveRoot(archive.Name())
	handles := make([]FileHandle, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if err := checkAborted(ctx); err != nil {
			return nil, err
		}
		content, err := readZipEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w %s: entry %s: %v", ErrArchiveRead, archive.Name(), f.Name, err)
		}
		handles = append(handles, newMemoryHandle(root+"/"+strings.TrimPrefix(f.Name, "/"), content))
	}
	return handles, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
