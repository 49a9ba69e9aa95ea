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

func newSyncer(t *testing.T) (*sync.Syncer, *sync.Hub, *store.Store) {
	t.Helper()
	st := testutil.OpenStore(t)
	hub := sync.NewHub()
	return sync.NewSyncer(st, hub, config.NullLogger()), hub, st
}

func seedItem(t *testing.T, st *store.Store, lib, id string, folders ...string) string {
	t.Helper()
	path := testutil.WriteItem(t, lib, eagle.Item{
		ID: id, Name: id, Ext: "png", ModificationTime: 1700000000000, Folders: folders,
	})
	if err := st.UpsertPending(path, store.PendingCreate); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunSyncsFoldersAndComputesCounts(t *testing.T) {
	s, hub, st := newSyncer(t)
	lib := testutil.NewLibraryDir(t, "main")

	testutil.WriteLibraryMetadata(t, lib, []eagle.FolderNode{
		{ID: "R", Name: "root", Children: []eagle.FolderNode{
			{ID: "A", Name: "animals"},
			{ID: "B", Name: "buildings"},
		}},
	})
	if _, err := st.CreateLibrary(lib, "eagle", true); err != nil {
		t.Fatal(err)
	}

	seedItem(t, st, lib, "a1", "A")
	seedItem(t, st, lib, "a2", "A")
	seedItem(t, st, lib, "b1", "B")
	seedItem(t, st, lib, "b2", "B")
	seedItem(t, st, lib, "b3", "B")

	events, cancel := hub.Subscribe(sync.StreamSync)
	defer cancel()

	if err := s.Run(context.Background(), lib); err != nil {
		t.Fatalf("run: %v", err)
	}

	// The bottom-up count: leaves first, then the root as the sum.
	want := map[string]int64{"A": 2, "B": 3, "R": 5}
	for id, n := range want {
		f, err := st.GetFolder(id)
		if err != nil {
			t.Fatal(err)
		}
		if f == nil {
			t.Fatalf("folder %s missing after sync", id)
		}
		if f.Count != n {
			t.Errorf("folder %s count = %d, want %d", id, f.Count, n)
		}
	}

	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(pendings) != 0 {
		t.Errorf("pending queue not drained: %+v", pendings)
	}

	active, err := st.ActiveLibrary()
	if err != nil {
		t.Fatal(err)
	}
	if active.LastSyncTime.IsZero() {
		t.Error("last sync time not stamped")
	}

	assertCompleted(t, events, sync.TypeFolder)
	assertCompleted(t, events, sync.TypeImage)
}

func TestRunDeletesStaleUnlinkedFolders(t *testing.T) {
	s, _, st := newSyncer(t)
	lib := testutil.NewLibraryDir(t, "main")

	// "held" keeps an image link and must survive even though the external
	// tree no longer lists it; "old" has no links and goes.
	for _, f := range []store.FolderUpsert{
		{ID: "old", Name: "old", Show: true},
		{ID: "held", Name: "held", Show: true},
	} {
		if err := st.UpsertFolder(f); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.UpsertImage(store.Image{ID: "i1", Path: lib + "/images/i1.info/metadata.json", Name: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := st.LinkFolder("i1", "held"); err != nil {
		t.Fatal(err)
	}

	testutil.WriteLibraryMetadata(t, lib, []eagle.FolderNode{{ID: "fresh", Name: "fresh"}})
	if _, err := st.CreateLibrary(lib, "eagle", true); err != nil {
		t.Fatal(err)
	}

	if err := s.Run(context.Background(), lib); err != nil {
		t.Fatalf("run: %v", err)
	}

	if f, _ := st.GetFolder("old"); f != nil {
		t.Error("unlinked stale folder survived the pass")
	}
	if f, _ := st.GetFolder("held"); f == nil {
		t.Error("linked folder was deleted despite image references")
	}
	if f, _ := st.GetFolder("fresh"); f == nil {
		t.Error("folder from the external tree missing")
	}
}

func TestRunHandlesDuplicateFolderIDs(t *testing.T) {
	s, _, st := newSyncer(t)
	lib := testutil.NewLibraryDir(t, "main")

	// Malformed tree repeating an id: the walk must terminate and keep one row.
	testutil.WriteLibraryMetadata(t, lib, []eagle.FolderNode{
		{ID: "dup", Name: "first"},
		{ID: "dup", Name: "second"},
		{ID: "other", Name: "other"},
	})

	if err := s.Run(context.Background(), lib); err != nil {
		t.Fatalf("run: %v", err)
	}

	folders, err := st.ListFolders()
	if err != nil {
		t.Fatal(err)
	}
	if len(folders) != 2 {
		t.Errorf("folder rows = %d, want 2", len(folders))
	}
}

func TestRunFailsWithoutFolderTree(t *testing.T) {
	s, _, _ := newSyncer(t)
	lib := testutil.NewLibraryDir(t, "main")
	// No metadata.json written: the pass must abort, not continue blind.
	if err := s.Run(context.Background(), lib); err == nil {
		t.Fatal("expected error when the folder tree is unreadable")
	}
}

func TestRunGCsOrphanedTagsAndColors(t *testing.T) {
	s, _, st := newSyncer(t)
	lib := testutil.NewLibraryDir(t, "main")
	testutil.WriteLibraryMetadata(t, lib, nil)

	item := eagle.Item{
		ID: "i1", Name: "pic", Ext: "png",
		ModificationTime: 1000000,
		Tags:             []string{"doomed"},
	}
	path := testutil.WriteItem(t, lib, item)
	if err := st.UpsertPending(path, store.PendingCreate); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background(), lib); err != nil {
		t.Fatal(err)
	}

	// Drop the tag and resync: the orphaned tag row must be collected.
	item.ModificationTime += 10000
	item.Tags = nil
	testutil.WriteItem(t, lib, item)
	if err := st.UpsertPending(path, store.PendingUpdate); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(context.Background(), lib); err != nil {
		t.Fatal(err)
	}

	n, err := st.CountTags()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("tag rows after GC = %d, want 0", n)
	}
}

func TestRefreshFoldersLeavesPendingsAlone(t *testing.T) {
	s, _, st := newSyncer(t)
	lib := testutil.NewLibraryDir(t, "main")

	testutil.WriteLibraryMetadata(t, lib, []eagle.FolderNode{{ID: "F", Name: "fresh"}})
	path := seedItem(t, st, lib, "i1")

	if err := s.RefreshFolders(lib); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if f, _ := st.GetFolder("F"); f == nil {
		t.Error("folder missing after refresh")
	}
	pendings, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(pendings) != 1 || pendings[0].Path != path {
		t.Errorf("pending queue changed by folder refresh: %+v", pendings)
	}
}

// assertCompleted drains events until a completed notification for typ
// arrives or the timeout hits.
func assertCompleted(t *testing.T, events <-chan sync.Event, typ string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Status == sync.StatusCompleted && ev.Type == typ {
				return
			}
		case <-deadline:
			t.Fatalf("no completed event for %s", typ)
		}
	}
}
