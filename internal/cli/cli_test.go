package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<html><body><ul>
<li><a class="file_item attachment_icon_link" href="/files/a.txt">A</a></li>
<li><a class="file_item attachment_icon_link" href="/files/b.txt">B</a></li>
</ul></body></html>`

func execute(t *testing.T, in string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KONA_SCRATCH_DIR", filepath.Join(dir, "scratch"))
	t.Setenv("KONA_SCRATCH_CAPACITY", "1048576")
	t.Setenv("KONA_LOG_LEVEL", "error")
	return dir
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/course", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/files/a.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "alpha")
	})
	mux.HandleFunc("/files/b.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "bravo")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "kona 1.2.3 (commit abc, built today)\n", out)
}

func TestDownload(t *testing.T) {
	dir := isolate(t)
	srv := newServer(t)
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "", "download", srv.URL+"/course", "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 2 file(s)")
	assert.Contains(t, out, "Complete! Archived 2/2 files")

	info, err := os.Stat(filepath.Join(outDir, "kona.zip"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDownload_DryRun(t *testing.T) {
	dir := isolate(t)
	srv := newServer(t)

	out, err := execute(t, "", "download", srv.URL+"/course", "--dry-run", "-o", dir)
	require.NoError(t, err)
	assert.Contains(t, out, srv.URL+"/files/a.txt")
	assert.Contains(t, out, "Dry run")

	_, err = os.Stat(filepath.Join(dir, "kona.zip"))
	assert.True(t, os.IsNotExist(err))
}

func TestDownload_NoFiles(t *testing.T) {
	dir := isolate(t)
	pagePath := filepath.Join(dir, "empty.html")
	require.NoError(t, os.WriteFile(pagePath, []byte("<html><body></body></html>"), 0644))

	out, err := execute(t, "", "download", pagePath, "-o", dir)
	require.Error(t, err)
	assert.Contains(t, out, "Download failed: no files to download")
}

func TestDownload_InvalidName(t *testing.T) {
	dir := isolate(t)
	_, err := execute(t, "", "download", "page.html", "-o", dir, "--name", "a/b.zip")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "kona.yaml")

	out, err := execute(t, "", "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	out, err = execute(t, "", "config", "show", "--config", path, "-o", "/srv/files")
	require.NoError(t, err)
	assert.Contains(t, out, "archive_name")
	assert.Contains(t, out, "/srv/files")
}

func TestRelay(t *testing.T) {
	isolate(t)
	in := `{"type":"message","id":1,"tab_id":5,"message":{"action":"show"}}` + "\n" +
		`{"type":"tab_updated","tab_id":5,"status":"complete"}` + "\n"

	out, err := execute(t, in, "relay")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"result":true`)
	assert.Contains(t, lines[1], `"action":"attach"`)
}
