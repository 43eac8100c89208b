package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vincentbai/visionui-beacon/internal/config"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	cfg = config.Load()
	assert.Equal(t, "beacon version "+version+"\n", execute(t, "version"))
}

func TestAudit(t *testing.T) {
	cfg = config.Load()
	page := filepath.Join(t.TempDir(), "index.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><body>
		<a href="/pages/store.html">Apps</a>
		<button class="btn cta">Comprar Framework</button>
		<a href="/docs">Docs</a>
	</body></html>`), 0o644))

	out := execute(t, "audit", page)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "apps_click")
	assert.Contains(t, lines[2], "checkout_started")
	assert.Contains(t, lines[3], "-")
}

func TestTrackPostsToCollector(t *testing.T) {
	var mu sync.Mutex
	var got map[string]any
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer collector.Close()

	t.Setenv("BEACON_COLLECTOR_URL", collector.URL)
	cfg = config.Load()

	out := execute(t, "track", "download", "framework", "--page", "/pages/store.html")

	assert.Contains(t, out, "download ses_")
	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, got)
	assert.Equal(t, "download", got["event"])
	assert.Equal(t, "framework", got["detail"])
	assert.Equal(t, "/pages/store.html", got["page"])
}

func TestTrackReusesTabSessionOfServeDatabase(t *testing.T) {
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer collector.Close()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("BEACON_DB_PATH", "")
	t.Setenv("BEACON_COLLECTOR_URL", collector.URL)
	cfg = config.Load()
	t.Cleanup(func() { trackFlags.tab = "" })

	sessionOf := func(out string) string {
		fields := strings.Fields(out)
		require.Len(t, fields, 4, out)
		return fields[1]
	}
	first := sessionOf(execute(t, "track", "page_view", "--tab", "t1"))
	second := sessionOf(execute(t, "track", "page_view", "--tab", "t1"))
	assert.Equal(t, first, second)

	path, err := tabDatabasePath()
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
