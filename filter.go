package main

import "strings"

// maxFileSize is the largest file whose content is extracted.
const maxFileSize int64 = 5 * 1024 * 1024

// ignoredDirs are directory names pruned from every walk and path.
var ignoredDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"__pycache__":  {},
	".vscode":      {},
	".idea":        {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"target":       {},
}

// ignoredExtensions are extensions (with the dot, lowercased) never read as text.
var ignoredExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".svg": {}, ".ico": {}, ".webp": {},
	".mp3": {}, ".wav": {}, ".ogg": {}, ".mp4": {}, ".mov": {}, ".avi": {}, ".webm": {},
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {},
	".exe": {}, ".dll": {}, ".so": {}, ".o": {}, ".a": {}, ".obj": {}, ".class": {}, ".jar": {},
	".pyc": {}, ".pyd": {}, ".ds_store": {},
	".eot": {}, ".ttf": {}, ".woff": {}, ".woff2": {},
}

func isIgnoredDir(name string) bool {
	_, ok := ignoredDirs[name]
	return ok
}

// hasIgnoredExtension checks the lowercased extension of name against the binary set.
func hasIgnoredExtension(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	_, ok := ignoredExtensions[strings.ToLower(name[i:])]
	return ok
}

// isHidden checks if a path segment is hidden (starts with '.').
func isHidden(segment string) bool {
	return segment != "." && segment != ".." && strings.HasPrefix(segment, ".")
}

// isAccepted rejects a relative path when any segment is an ignored directory
// name or hidden. Every segment is checked, so files below an ignored
// ancestor are rejected too.
func isAccepted(relativePath string) bool {
	for _, segment := range strings.Split(relativePath, "/") {
		if isIgnoredDir(segment) || isHidden(segment) {
			return false
		}
	}
	return true
}

// filterHandles keeps the handles whose relative path is accepted.
func filterHandles(handles []FileHandle) []FileHandle {
	kept := make([]FileHandle, 0, len(handles))
	for _, h := range handles {
		if isAccepted(handlePath(h)) {
			kept = append(kept, h)
		}
	}
	return kept
}
