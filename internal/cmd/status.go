package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kafky-yu/eagle-pics-server/internal/store"
)

// StatusCmd reports the active library and its sync counters.
type StatusCmd struct{}

func (c *StatusCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.store.ActiveLibraryStatus()
	if errors.Is(err, store.ErrNoActiveLibrary) {
		if flags.JSON {
			return writeJSON(map[string]any{"active": false})
		}
		fmt.Fprintln(os.Stdout, "no active library")
		return nil
	}
	if err != nil {
		return err
	}

	if flags.JSON {
		return writeJSON(status)
	}

	fmt.Fprintf(os.Stdout, "library:  %s\n", status.Path)
	if status.LastSyncTime.IsZero() {
		fmt.Fprintln(os.Stdout, "last sync: never")
	} else {
		fmt.Fprintf(os.Stdout, "last sync: %s\n", status.LastSyncTime.Format(time.RFC3339))
	}
	fmt.Fprintf(os.Stdout, "synced:   %d\n", status.SyncCount)
	fmt.Fprintf(os.Stdout, "pending:  %d\n", status.PendingCount)
	fmt.Fprintf(os.Stdout, "failed:   %d\n", status.UnSyncCount)
	fmt.Fprintf(os.Stdout, "trash:    %d\n", status.TrashCount)
	return nil
}
