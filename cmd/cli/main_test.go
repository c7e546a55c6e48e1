package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/concordtech/contact-api/domain/contact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func useFileStorage(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "submissions.json")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	t.Setenv("SKIP_DOTENV", "true")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("STORAGE_FILE_PATH", path)
	t.Setenv("STORAGE_FALLBACK", "none")
	return path
}

func TestSubmissionsList_PrintsSortedJSON(t *testing.T) {
	useFileStorage(t, `[
		{"id":"1","firstName":"A","lastName":"B","email":"a@b.com","message":"old","timestamp":"2024-01-01T00:00:00.000Z"},
		{"id":"2","firstName":"C","lastName":"D","email":"c@d.com","message":"new","timestamp":"2024-06-01T00:00:00.000Z"}
	]`)

	out, err := runCLI(t, "submissions", "list")
	require.NoError(t, err)

	var resp contact.SubmissionsResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "2", resp.Submissions[0].ID)
	assert.Equal(t, "1", resp.Submissions[1].ID)
}

func TestStorageProbe_ReportsCount(t *testing.T) {
	useFileStorage(t, "")

	out, err := runCLI(t, "storage", "probe")

	require.NoError(t, err)
	assert.Equal(t, "backend=file status=ok count=0\n", out)
}

func TestStorageProbe_CorruptFileFails(t *testing.T) {
	useFileStorage(t, "{not json")

	_, err := runCLI(t, "storage", "probe")

	assert.Error(t, err)
}

func TestUnknownBackendIsRejected(t *testing.T) {
	t.Setenv("SKIP_DOTENV", "true")
	t.Setenv("STORAGE_BACKEND", "s3")

	_, err := runCLI(t, "submissions", "list")

	assert.Error(t, err)
}
