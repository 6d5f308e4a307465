package bootstrap

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBootstrapAPK_DownloadsWhenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("apk-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	err := FetchBootstrapAPK(context.Background(), srv.Client(), srv.URL, dir, "sample.apk", false)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "sample.apk"))
	require.NoError(t, err)
	assert.Equal(t, "apk-bytes", string(data))
}

func TestFetchBootstrapAPK_SkipsWhenExistsAndNotForced(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.apk"), []byte("existing"), 0o644))

	err := FetchBootstrapAPK(context.Background(), srv.Client(), srv.URL, dir, "sample.apk", false)
	require.NoError(t, err)
	assert.Zero(t, hits)
}

func TestFetchBootstrapAPK_ForceRedownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sample.apk"), []byte("stale"), 0o644))

	err := FetchBootstrapAPK(context.Background(), srv.Client(), srv.URL, dir, "sample.apk", true)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "sample.apk"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestFetchBootstrapAPK_HTTPErrorAbortsImmediately(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	err := FetchBootstrapAPK(context.Background(), srv.Client(), srv.URL, dir, "sample.apk", false)
	require.Error(t, err)
	assert.Equal(t, 1, hits)
}

func TestWriteEmptyTestZip_WritesValidEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteEmptyTestZip(dir, "empty.zip"))

	r, err := zip.OpenReader(filepath.Join(dir, "empty.zip"))
	require.NoError(t, err)
	defer r.Close()
	assert.Empty(t, r.File)
}
