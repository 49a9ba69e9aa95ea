package store_test

import (
	"testing"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/testutil"
)

func TestPendingDeduplicatesByPath(t *testing.T) {
	st := testutil.OpenStore(t)

	if err := st.UpsertPending("/lib/images/a.info/metadata.json", store.PendingCreate); err != nil {
		t.Fatal(err)
	}
	if err := st.UpsertPending("/lib/images/b.info/metadata.json", store.PendingCreate); err != nil {
		t.Fatal(err)
	}
	// Same path again with a different type: the row must be replaced, not duplicated.
	if err := st.UpsertPending("/lib/images/a.info/metadata.json", store.PendingDelete); err != nil {
		t.Fatal(err)
	}

	got, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 pendings, got %d", len(got))
	}
	if got[0].Path != "/lib/images/a.info/metadata.json" || got[0].Type != store.PendingDelete {
		t.Errorf("first pending = %+v, want a.info with type delete", got[0])
	}
	if got[1].Type != store.PendingCreate {
		t.Errorf("second pending type = %s, want create", got[1].Type)
	}
}

func TestCountPendingsScopesByPrefix(t *testing.T) {
	st := testutil.OpenStore(t)

	paths := []string{
		"/libs/one.library/images/a.info/metadata.json",
		"/libs/one.library/images/b.info/metadata.json",
		"/libs/two.library/images/c.info/metadata.json",
	}
	for _, p := range paths {
		if err := st.UpsertPending(p, store.PendingCreate); err != nil {
			t.Fatal(err)
		}
	}

	total, err := st.CountPendings("")
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Errorf("total count = %d, want 3", total)
	}

	scoped, err := st.CountPendings("/libs/one.library")
	if err != nil {
		t.Fatal(err)
	}
	if scoped != 2 {
		t.Errorf("scoped count = %d, want 2", scoped)
	}
}

func TestDeletePendingMissingPathIsNoError(t *testing.T) {
	st := testutil.OpenStore(t)
	if err := st.DeletePending("/does/not/exist"); err != nil {
		t.Fatalf("delete missing pending: %v", err)
	}
}

func TestDeletePendingsByPrefix(t *testing.T) {
	st := testutil.OpenStore(t)

	paths := []string{
		"/libs/one.library/images/a.info/metadata.json",
		"/libs/one.library/images/b.info/metadata.json",
		"/libs/two.library/images/c.info/metadata.json",
	}
	for _, p := range paths {
		if err := st.UpsertPending(p, store.PendingCreate); err != nil {
			t.Fatal(err)
		}
	}

	if err := st.DeletePendingsByPrefix("/libs/one.library"); err != nil {
		t.Fatal(err)
	}

	got, err := st.Pendings()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Path != paths[2] {
		t.Fatalf("expected only the other library's pending to remain, got %+v", got)
	}
}
