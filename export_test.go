package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFileName(t *testing.T) {
	testCases := []struct {
		rootName string
		expected string
	}{
		{rootName: "proj", expected: "proj.txt"},
		{rootName: "my:proj?*", expected: "my_proj__.txt"},
		{rootName: `a/b\c"d'e`, expected: "a_b_c_d_e.txt"},
		{rootName: "  ", expected: defaultSaveName},
		{rootName: "", expected: defaultSaveName},
	}

	for _, tc := range testCases {
		t.Run(tc.rootName, func(t *testing.T) {
			assert.Equal(t, tc.expected, saveFileName(tc.rootName))
		})
	}
}

func TestWriteOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, writeOutputFile(path, "File Structure:\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "File Structure:\n", string(data))

	assert.Error(t, writeOutputFile(filepath.Join(t.TempDir(), "missing", "out.txt"), "x"))
}

func TestGeneratePDF(t *testing.T) {
	pf, err := testBuilder().Build(context.Background(), memFiles(map[string]string{
		"proj/src/main.go": "package main\n\nfunc main() {\n\tprintln(\"héllo\")\n}\n",
		"proj/README.md":   "# proj\n",
	}), defaultOpts())
	require.NoError(t, err)
	pf.Contents[0].Excluded = true

	path := filepath.Join(t.TempDir(), "proj.pdf")
	require.NoError(t, generatePDF(pf, summarize(pf.Contents, nil), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}
