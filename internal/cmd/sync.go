package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
	"github.com/kafky-yu/eagle-pics-server/internal/sync"
)

// SyncCmd runs one sync pass: the pending queue is drained into the mirror
// and folder state is reconciled against the library's metadata tree.
type SyncCmd struct{}

func (c *SyncCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	lib, err := a.store.ActiveLibrary()
	if errors.Is(err, store.ErrNoActiveLibrary) {
		return usagef("no active library; run 'eps library add' first")
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := a.buildStack(false)
	if err := st.syncer.Run(ctx, lib.Path); err != nil {
		if errors.Is(err, sync.ErrSyncInFlight) {
			return usagef("a sync pass is already running")
		}
		return err
	}

	status, err := a.store.ActiveLibraryStatus()
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(status)
	}
	fmt.Fprintf(os.Stdout, "synced %s: %d synced, %d pending, %d failed, %d in trash\n",
		lib.Path, status.SyncCount, status.PendingCount, status.UnSyncCount, status.TrashCount)
	return nil
}
