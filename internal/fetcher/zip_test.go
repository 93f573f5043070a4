package fetcher

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestExtractLeadFile(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"README.md":        "export notes",
		"export/leads.csv": "business_name\nSol\n",
		"._leads.csv":      "mac metadata",
	})

	destDir := t.TempDir()
	path, err := ExtractLeadFile(zipPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "export", "leads.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "business_name\nSol\n", string(data))
}

func TestExtractLeadFile_Ambiguous(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{
		"a.csv":  "x\n1\n",
		"b.json": "[]",
	})

	_, err := ExtractLeadFile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected exactly 1 lead file, got 2")
}

func TestExtractLeadFile_ZipSlipPrevention(t *testing.T) {
	zipPath := createTestZIP(t, map[string]string{"../../../tmp/leads.csv": "x"})

	_, err := ExtractLeadFile(zipPath, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractLeadFile_InvalidArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, writeTestFile(path, "not a zip"))

	_, err := ExtractLeadFile(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip: open archive")
}
