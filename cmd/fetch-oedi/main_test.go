package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"community-load/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, baseURL string) string {
	t.Helper()
	m := &data.Manifest{
		BaseURL:  baseURL,
		DestRoot: filepath.Join(dir, "input"),
		Items: []data.ManifestItem{{
			Name:   "res",
			Prefix: "bucket/res",
			Dest:   "resstock",
			Files:  []string{"characteristics.csv"},
		}},
	}
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, data.SaveManifest(m, path))
	return path
}

func TestFetchAddsIDsAndStamps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload for " + r.URL.Path))
	}))
	defer srv.Close()
	dir := t.TempDir()
	manifest := writeManifest(t, dir, srv.URL)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--manifest", manifest, "--item", "res", "--building-id", "7,9", "--stamp"})
	require.NoError(t, cmd.Execute(), out.String())
	assert.Contains(t, out.String(), "Downloaded 3, skipped 0")

	got, err := os.ReadFile(filepath.Join(dir, "input", "resstock", "7-0.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "payload for /bucket/res/7-0.parquet", string(got))

	m, err := data.LoadManifest(manifest)
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "9"}, m.Items[0].IDs)
	assert.NotEmpty(t, m.UpdatedAt)
}

func TestFetchDryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	manifest := writeManifest(t, dir, "http://127.0.0.1:1")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--manifest", manifest, "--dry-run"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Would download 1")
	assert.NoDirExists(t, filepath.Join(dir, "input"))
}

func TestAddIDsUnknownItem(t *testing.T) {
	m := &data.Manifest{Items: []data.ManifestItem{{Name: "res"}}}
	assert.Error(t, addIDs(m, "com", []string{"1"}))
}
