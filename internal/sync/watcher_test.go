package sync_test

import (
	"context"
	"testing"
	"time"

	"github.com/kafky-yu/eagle-pics-server/internal/config"
	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/sync"
	"github.com/kafky-yu/eagle-pics-server/internal/testutil"
)

func newWatcher(t *testing.T) (*sync.Watcher, *sync.Hub, *store.Store) {
	t.Helper()
	st := testutil.OpenStore(t)
	hub := sync.NewHub()
	w := sync.NewWatcher(sync.WatcherOptions{
		Store:  st,
		Hub:    hub,
		Logger: config.NullLogger(),
		Quiet:  50 * time.Millisecond,
	})
	t.Cleanup(func() { w.Unwatch() })
	return w, hub, st
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch completion channel never closed")
	}
}

func TestWatchInitialScanEnqueuesExistingItems(t *testing.T) {
	w, _, st := newWatcher(t)
	lib := testutil.NewLibraryDir(t, "main")

	p1 := testutil.WriteItem(t, lib, eagle.Item{ID: "i1", Name: "a", Ext: "png"})
	p2 := testutil.WriteItem(t, lib, eagle.Item{ID: "i2", Name: "b", Ext: "png"})

	done, err := w.Watch(sync.WatchConfig{LibraryPath: lib})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)

	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]store.PendingType{}
	for _, p := range pendings {
		got[p.Path] = p.Type
	}
	if got[p1] != store.PendingCreate || got[p2] != store.PendingCreate {
		t.Fatalf("pendings = %v, want creates for both items", got)
	}
}

func TestWatchIsIdempotentWhileActive(t *testing.T) {
	w, _, _ := newWatcher(t)
	lib := testutil.NewLibraryDir(t, "main")

	done1, err := w.Watch(sync.WatchConfig{LibraryPath: lib})
	if err != nil {
		t.Fatal(err)
	}
	done2, err := w.Watch(sync.WatchConfig{LibraryPath: lib})
	if err != nil {
		t.Fatal(err)
	}
	if done1 != done2 {
		t.Error("second Watch while active must return the existing completion channel")
	}
	waitDone(t, done2)

	if err := w.Unwatch(); err != nil {
		t.Fatal(err)
	}
	if err := w.Unwatch(); err != nil {
		t.Errorf("repeated Unwatch: %v", err)
	}
	if w.Active() {
		t.Error("watcher still active after Unwatch")
	}
}

func TestWatchReloadDiscardsInitialScan(t *testing.T) {
	w, _, st := newWatcher(t)
	lib := testutil.NewLibraryDir(t, "main")
	testutil.WriteItem(t, lib, eagle.Item{ID: "i1", Name: "a", Ext: "png"})

	done, err := w.Watch(sync.WatchConfig{LibraryPath: lib, IsReload: true})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)

	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(pendings) != 0 {
		t.Fatalf("reload without diff must discard the initial scan, got %+v", pendings)
	}
}

func TestWatchReloadWithDiffKeepsInitialScan(t *testing.T) {
	w, _, st := newWatcher(t)
	lib := testutil.NewLibraryDir(t, "main")
	p := testutil.WriteItem(t, lib, eagle.Item{ID: "i1", Name: "a", Ext: "png"})

	done, err := w.Watch(sync.WatchConfig{LibraryPath: lib, IsReload: true, StartDiffLibrary: true})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)

	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(pendings) != 1 || pendings[0].Path != p {
		t.Fatalf("diff-on-start must keep the initial scan, got %+v", pendings)
	}
}

func TestWatchPicksUpNewItem(t *testing.T) {
	w, hub, st := newWatcher(t)
	lib := testutil.NewLibraryDir(t, "main")

	done, err := w.Watch(sync.WatchConfig{LibraryPath: lib})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)

	events, cancel := hub.Subscribe(sync.StreamWatch)
	defer cancel()

	p := testutil.WriteItem(t, lib, eagle.Item{ID: "late", Name: "late", Ext: "png"})

	// The flush after the debounce window publishes a completed event.
	deadline := time.After(5 * time.Second)
	for flushed := false; !flushed; {
		select {
		case ev := <-events:
			flushed = ev.Status == sync.StatusCompleted && ev.Count >= 1
		case <-deadline:
			t.Fatal("no flush after new item appeared")
		}
	}

	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, pd := range pendings {
		if pd.Path == p && pd.Type == store.PendingCreate {
			found = true
		}
	}
	if !found {
		t.Fatalf("new item not enqueued, pendings = %+v", pendings)
	}
}

func TestWatchSkipsFreshItems(t *testing.T) {
	w, _, st := newWatcher(t)
	lib := testutil.NewLibraryDir(t, "main")

	// Mirror the item first so the pre-filter sees it as already synced.
	p := testutil.WriteItem(t, lib, eagle.Item{ID: "i1", Name: "a", Ext: "png", ModificationTime: 5000})
	engine := sync.NewEngine(st, config.NullLogger())
	if err := engine.Upsert(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	done, err := w.Watch(sync.WatchConfig{LibraryPath: lib})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, done)

	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(pendings) != 0 {
		t.Fatalf("fresh item must not be enqueued, got %+v", pendings)
	}
}
