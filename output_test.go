package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnotation(t *testing.T) {
	testCases := []struct {
		name      string
		node      TreeNode
		showStats bool
		expected  string
	}{
		{name: "Excluded wins over stats", node: TreeNode{Status: StatusProcessed, Excluded: true, Chars: 3}, showStats: true, expected: " (excluded)"},
		{name: "Excluded wins over error", node: TreeNode{Status: StatusError, Excluded: true}, expected: " (excluded)"},
		{name: "Error", node: TreeNode{Status: StatusError}, showStats: true, expected: " (error)"},
		{name: "Stats on processed file", node: TreeNode{Status: StatusProcessed, Chars: 42}, showStats: true, expected: " (42 chars)"},
		{name: "Stats hidden", node: TreeNode{Status: StatusProcessed, Chars: 42}, expected: ""},
		{name: "No stats for skipped", node: TreeNode{Status: StatusSkipped}, showStats: true, expected: ""},
		{name: "No stats for directories", node: TreeNode{IsDir: true}, showStats: true, expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, annotation(&tc.node, tc.showStats))
		})
	}
}

func TestRenderTree(t *testing.T) {
	forest := []*TreeNode{{
		Name: "a", Path: "a", IsDir: true,
		Children: []*TreeNode{{
			Name: "b", Path: "a/b", IsDir: true,
			Children: []*TreeNode{{Name: "c", Path: "a/b/c", Status: StatusProcessed, Chars: 7}},
		}},
	}}

	assert.Equal(t, "a\n└── b\n    └── c\n", renderTree(forest, "a", false))
	assert.Equal(t, "a\n└── b\n    └── c (7 chars)\n", renderTree(forest, "a", true))
	assert.Equal(t, "Project\n└── a\n    └── b\n        └── c\n", renderTree(forest, "Project", false),
		"a root named differently from the label is rendered as a node")
}

func TestRenderTreeOpenBranches(t *testing.T) {
	forest := []*TreeNode{
		{Name: "src", Path: "src", IsDir: true, Children: []*TreeNode{
			{Name: "a.go", Path: "src/a.go", Status: StatusProcessed},
			{Name: "b.go", Path: "src/b.go", Status: StatusError},
		}},
		{Name: "go.mod", Path: "go.mod", Status: StatusProcessed, Excluded: true},
	}

	expected := "Project\n" +
		"├── src\n" +
		"│   ├── a.go\n" +
		"│   └── b.go (error)\n" +
		"└── go.mod (excluded)\n"
	first := renderTree(forest, "Project", false)
	assert.Equal(t, expected, first)
	assert.Equal(t, first, renderTree(forest, "Project", false))
}

func TestAssembleOutput(t *testing.T) {
	rule := strings.Repeat("=", 50)
	contents := []FileContent{
		{Path: "p/a.txt", Content: "alpha"},
		{Path: "p/b.txt", Content: "beta\n", Excluded: true},
		{Path: "p/c.txt", Content: "gamma\n"},
	}

	expected := "File Structure:\np\n├── a.txt\n├── b.txt (excluded)\n└── c.txt\n\n" +
		"File Contents:\n" +
		rule + "\nFile: p/a.txt\n" + rule + "\nalpha\n\n" +
		rule + "\nFile: p/c.txt\n" + rule + "\ngamma\n\n"
	structure := "p\n├── a.txt\n├── b.txt (excluded)\n└── c.txt\n"

	out := assembleOutput(structure, contents)
	assert.Equal(t, expected, out)
	assert.NotContains(t, out, "beta")
	assert.Equal(t, out, assembleOutput(structure, contents))
}

func TestAssembleOutputPlaceholder(t *testing.T) {
	out := assembleOutput("p\n└── a.txt (excluded)\n", []FileContent{{Path: "p/a.txt", Content: "a", Excluded: true}})
	assert.Equal(t, "File Structure:\np\n└── a.txt (excluded)\n\nFile Contents:\n(no file contents extracted)\n", out)

	out = assembleOutput("Project\n", nil)
	assert.True(t, strings.HasSuffix(out, noContentsNote+"\n"))
}

func TestAssembleOutputEmptyFile(t *testing.T) {
	rule := strings.Repeat("=", 50)
	out := assembleOutput("p\n└── empty.txt\n", []FileContent{{Path: "p/empty.txt"}})
	assert.True(t, strings.HasSuffix(out, rule+"\nFile: p/empty.txt\n"+rule+"\n\n"))
}
