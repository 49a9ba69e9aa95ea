package server_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kafky-yu/eagle-pics-server/internal/config"
	"github.com/kafky-yu/eagle-pics-server/internal/server"
	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/sync"
	"github.com/kafky-yu/eagle-pics-server/internal/testutil"
)

func newServer(t *testing.T, st *store.Store, hub *sync.Hub) *server.Server {
	t.Helper()
	srv := server.New(server.Options{
		Addr:   "127.0.0.1:0",
		Store:  st,
		Hub:    hub,
		Logger: config.NullLogger(),
	})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func TestConfigEndpoint(t *testing.T) {
	st := testutil.OpenStore(t)
	if err := st.UpsertSettings(store.Settings{
		IP: "127.0.0.1", ServerPort: 61121, ClientPort: 61122,
		Theme: "blur", Color: "#abc", AutoSync: true,
	}); err != nil {
		t.Fatal(err)
	}

	srv := newServer(t, st, sync.NewHub())
	resp, err := http.Get("http://" + srv.Addr() + "/common/config")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["theme"] != "blur" || got["autoSync"] != true {
		t.Errorf("config = %v", got)
	}
}

func TestFoldersEndpointHidesPasswordsAndHiddenFolders(t *testing.T) {
	st := testutil.OpenStore(t)
	for _, f := range []store.FolderUpsert{
		{ID: "open", Name: "open", Show: true},
		{ID: "locked", Name: "locked", Password: "s3cret", PasswordTips: "pet name", Show: true},
		{ID: "hidden", Name: "hidden", Show: false},
	} {
		if err := st.UpsertFolder(f); err != nil {
			t.Fatal(err)
		}
	}

	srv := newServer(t, st, sync.NewHub())
	resp, err := http.Get("http://" + srv.Addr() + "/common/folders")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(body), "s3cret") {
		t.Error("folder password leaked in response")
	}

	var got []map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("visible folders = %d, want 2", len(got))
	}
	for _, f := range got {
		if f["id"] == "hidden" {
			t.Error("hidden folder served")
		}
		if f["id"] == "locked" && f["passwordTips"] != "pet name" {
			t.Errorf("locked folder tips = %v", f["passwordTips"])
		}
	}
}

func TestThemeFallbackKeepsNotFoundStatus(t *testing.T) {
	st := testutil.OpenStore(t)
	themeDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(themeDir, "index.html"), []byte("<html>home</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(themeDir, "404.html"), []byte("<html>lost</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := server.New(server.Options{
		Addr:     "127.0.0.1:0",
		Store:    st,
		Hub:      sync.NewHub(),
		Logger:   config.NullLogger(),
		ThemeDir: themeDir,
	})
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + srv.Addr() + "/no/such/page")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "lost") {
		t.Errorf("fallback body = %q", body)
	}

	direct, err := http.Get("http://" + srv.Addr() + "/index.html")
	if err != nil {
		t.Fatal(err)
	}
	defer direct.Body.Close()
	if direct.StatusCode != http.StatusOK {
		t.Errorf("existing theme file status = %d, want 200", direct.StatusCode)
	}
}

func TestStaticMountServesLibraryFiles(t *testing.T) {
	st := testutil.OpenStore(t)
	lib := testutil.NewLibraryDir(t, "pets")
	if _, err := st.CreateLibrary(lib, "eagle", true); err != nil {
		t.Fatal(err)
	}
	payload := []byte("fake image bytes")
	if err := os.WriteFile(filepath.Join(lib, "images", "a.png"), payload, 0o644); err != nil {
		t.Fatal(err)
	}

	srv := newServer(t, st, sync.NewHub())
	resp, err := http.Get("http://" + srv.Addr() + "/static/pets/images/a.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != string(payload) {
		t.Errorf("body = %q", body)
	}
}

func TestRestartPicksUpNewLibraries(t *testing.T) {
	st := testutil.OpenStore(t)
	srv := newServer(t, st, sync.NewHub())

	lib := testutil.NewLibraryDir(t, "late")
	if _, err := st.CreateLibrary(lib, "eagle", true); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "images", "b.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Before restart the mount does not exist.
	resp, err := http.Get("http://" + srv.Addr() + "/static/late/images/b.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		t.Fatal("mount existed before restart")
	}

	if err := srv.Restart(); err != nil {
		t.Fatal(err)
	}
	resp, err = http.Get("http://" + srv.Addr() + "/static/late/images/b.png")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status after restart = %d", resp.StatusCode)
	}
}

func TestWatchEventsStream(t *testing.T) {
	st := testutil.OpenStore(t)
	hub := sync.NewHub()
	srv := newServer(t, st, hub)

	resp, err := http.Get("http://" + srv.Addr() + "/events/watch")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %s", ct)
	}

	// The subscription is registered before the handler writes headers, so
	// publishing after the response arrives is safe.
	hub.Publish(sync.StreamWatch, sync.Event{Status: sync.StatusStart})

	lineCh := make(chan string, 1)
	go func() {
		r := bufio.NewReader(resp.Body)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				lineCh <- line
				return
			}
		}
	}()

	select {
	case line := <-lineCh:
		if !strings.Contains(line, `"status":"start"`) {
			t.Errorf("event line = %q", line)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no event received on the stream")
	}
}
