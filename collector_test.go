package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollectDroppedFromDisk(t *testing.T) {
	root := setupTestDir(t, map[string]string{
		"proj/src/main.go":               "package main\n",
		"proj/node_modules/lib/index.js": "module.exports = {}\n",
		"proj/README.md":                 "# proj\n",
	})
	archive := zipBytes(t, map[string]string{"logo.txt": "logo"})
	require.NoError(t, os.WriteFile(filepath.Join(root, "proj", "assets.zip"), archive, 0o644))

	item, err := newDiskItem(filepath.Join(root, "proj"), nil)
	require.NoError(t, err)

	var messages []string
	c := newCollector(zap.NewNop(), func(msg string) { messages = append(messages, msg) })
	handles, err := DropSource{Items: []DropItem{item}}.Collect(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, []string{"assets/logo.txt", "proj/README.md", "proj/src/main.go"}, handlePaths(handles))
	assert.Contains(t, messages, "unzipping assets.zip…")
}

func TestCollectDroppedPrunesIgnoredDirsWithoutReading(t *testing.T) {
	modules := &fakeDir{name: "node_modules", fullPath: "/proj/node_modules"}
	proj := &fakeDir{
		name:     "proj",
		fullPath: "/proj",
		children: []DropItem{modules, &fakeFile{name: "a.js", fullPath: "/proj/a.js", data: "a"}},
	}

	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(context.Background(), []DropItem{proj})
	require.NoError(t, err)
	assert.Equal(t, []string{"proj/a.js"}, handlePaths(handles))
	assert.Zero(t, modules.readerCalls)
	assert.Equal(t, 1, proj.readerCalls)
}

func TestCollectDroppedReadsEveryPage(t *testing.T) {
	var children []func(string) DropItem
	for _, name := range []string{"a.go", "b.go", "c.go", "d.go", "e.go"} {
		children = append(children, dropFile(name, name))
	}
	proj := dropDir("proj", children...)("").(*fakeDir)
	proj.pageSize = 2

	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(context.Background(), []DropItem{proj})
	require.NoError(t, err)
	assert.Len(t, handles, 5)
	assert.Equal(t, 3, proj.pagesRead)
}

func TestCollectDroppedNested(t *testing.T) {
	tree := dropDir("proj",
		dropFile("README.md", "# r"),
		dropDir("src",
			dropFile("a.ts", "a"),
			dropDir("dist", dropFile("out.js", "o")),
		),
	)("")

	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(context.Background(), []DropItem{
		tree,
		&fakeFile{name: "loose.txt", fullPath: "/loose.txt", data: "l"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"loose.txt", "proj/README.md", "proj/src/a.ts"}, handlePaths(handles))
}

func TestCollectDroppedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree := dropDir("proj", dropFile("a.go", "a"))("")
	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(ctx, []DropItem{tree})
	assert.ErrorIs(t, err, ErrAborted)
	assert.Nil(t, handles)
}

func TestCollectSelectionCancelledBeforeArchive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	handles := []FileHandle{newMemoryHandle("bundle.zip", zipBytes(t, map[string]string{"a.txt": "a"}))}
	_, err := SelectionSource{Handles: handles}.Collect(ctx, newCollector(zap.NewNop(), nil))
	assert.ErrorIs(t, err, ErrAborted)
}

func TestCollectSelectionExpandsArchives(t *testing.T) {
	handles := []FileHandle{
		newMemoryHandle("proj/main.go", []byte("package main")),
		newMemoryHandle("proj/vendor.ZIP", zipBytes(t, map[string]string{"lib/x.go": "package lib"})),
	}

	out, err := newCollector(zap.NewNop(), nil).CollectSelection(context.Background(), handles)
	require.NoError(t, err)
	assert.Equal(t, []string{"proj/main.go", "vendor/lib/x.go"}, handlePaths(out))
}

func TestCollectArchiveFailureAbortsCollection(t *testing.T) {
	handles := []FileHandle{
		newMemoryHandle("proj/main.go", []byte("package main")),
		newMemoryHandle("proj/broken.zip", []byte("PK garbage")),
	}

	out, err := newCollector(zap.NewNop(), nil).CollectSelection(context.Background(), handles)
	assert.ErrorIs(t, err, ErrArchiveRead)
	assert.Nil(t, out)
}

func TestCollectProgressPanicDoesNotAbort(t *testing.T) {
	c := newCollector(zap.NewNop(), func(string) { panic("ui went away") })
	handles := []FileHandle{newMemoryHandle("a.zip", zipBytes(t, map[string]string{"a.txt": "a"}))}

	out, err := c.CollectSelection(context.Background(), handles)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/a.txt"}, handlePaths(out))
}

func TestCollectRespectsGitignore(t *testing.T) {
	root := setupTestDir(t, map[string]string{
		"proj/.gitignore":     "*.log\nignored/\n",
		"proj/app.log":        "log",
		"proj/sub/deep.log":   "log",
		"proj/ignored/x.txt":  "x",
		"proj/keep.txt":       "keep",
		"proj/sub/keep.go":    "package sub",
		"proj/notignored.txt": "n",
	})
	projDir := filepath.Join(root, "proj")

	item, err := newDiskItem(projDir, loadGitignore(projDir, zap.NewNop()))
	require.NoError(t, err)
	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(context.Background(), []DropItem{item})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"proj/.gitignore",
		"proj/keep.txt",
		"proj/notignored.txt",
		"proj/sub/keep.go",
	}, handlePaths(handles))
}

func TestLoadGitignoreMissing(t *testing.T) {
	assert.Nil(t, loadGitignore(t.TempDir(), zap.NewNop()))
}

func TestDropSourceDescribe(t *testing.T) {
	src := DropSource{Items: []DropItem{
		&fakeDir{name: "proj"},
		&fakeFile{name: "notes.txt"},
	}}
	assert.Equal(t, "proj, notes.txt", src.Describe())
	assert.True(t, strings.HasPrefix(SelectionSource{Handles: memFiles(map[string]string{"a": "a"})}.Describe(), "selection of 1"))
}

func TestCollectDroppedSkipsSymlinkCycles(t *testing.T) {
	root := setupTestDir(t, map[string]string{"proj/a.go": "package proj"})
	projDir := filepath.Join(root, "proj")
	require.NoError(t, os.Symlink("..", filepath.Join(projDir, "loop")))
	require.NoError(t, os.Symlink(".", filepath.Join(projDir, "self")))

	item, err := newDiskItem(projDir, nil)
	require.NoError(t, err)
	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(context.Background(), []DropItem{item})
	require.NoError(t, err)
	assert.Equal(t, []string{"proj/a.go"}, handlePaths(handles))
}

func TestCollectDroppedFollowsSymlinkedDirs(t *testing.T) {
	root := setupTestDir(t, map[string]string{
		"proj/a.go":     "package proj",
		"shared/lib.go": "package shared",
	})
	projDir := filepath.Join(root, "proj")
	require.NoError(t, os.Symlink(filepath.Join(root, "shared"), filepath.Join(projDir, "shared")))

	item, err := newDiskItem(projDir, nil)
	require.NoError(t, err)
	handles, err := newCollector(zap.NewNop(), nil).CollectDropped(context.Background(), []DropItem{item})
	require.NoError(t, err)
	assert.Equal(t, []string{"proj/a.go", "proj/shared/lib.go"}, handlePaths(handles))
}
