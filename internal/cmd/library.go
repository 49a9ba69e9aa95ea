package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"
)

type LibraryCmd struct {
	Add     LibraryAddCmd     `cmd:"" help:"Register a .library directory and make it active"`
	List    LibraryListCmd    `cmd:"" aliases:"ls" help:"List registered libraries"`
	Switch  LibrarySwitchCmd  `cmd:"" help:"Make a registered library the active one"`
	Remove  LibraryRemoveCmd  `cmd:"" aliases:"rm" help:"Unregister the active library and delete its mirror"`
	History LibraryHistoryCmd `cmd:"" help:"List libraries recently opened in the Eagle app"`
}

type LibraryAddCmd struct {
	Path string `arg:"" help:"Path to the .library directory" type:"path"`
}

func (c *LibraryAddCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ensureSettings(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := a.buildStack(false)
	defer st.watcher.Unwatch()

	lib, err := st.manager.Add(ctx, c.Path)
	if err != nil {
		return err
	}
	if err := st.syncer.Run(ctx, lib.Path); err != nil {
		return err
	}

	status, err := a.store.ActiveLibraryStatus()
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(status)
	}
	fmt.Fprintf(os.Stdout, "added %s: %d synced, %d failed\n",
		lib.Path, status.SyncCount, status.UnSyncCount)
	return nil
}

type LibraryListCmd struct{}

func (c *LibraryListCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	libs, err := a.store.ListLibraries()
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(libs)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPATH\tACTIVE\tLAST SYNC")
	for _, lib := range libs {
		active := ""
		if lib.IsActive {
			active = "*"
		}
		lastSync := "-"
		if !lib.LastSyncTime.IsZero() {
			lastSync = lib.LastSyncTime.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", filepath.Base(lib.Path), lib.Path, active, lastSync)
	}
	return w.Flush()
}

type LibrarySwitchCmd struct {
	Path  string `arg:"" help:"Path of a registered library" type:"path"`
	Eagle bool   `help:"Also switch the Eagle app to this library"`
}

func (c *LibrarySwitchCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.ensureSettings(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := a.buildStack(false)
	defer st.watcher.Unwatch()

	if err := st.manager.SetActive(ctx, c.Path); err != nil {
		return err
	}
	if c.Eagle {
		// The mirror already switched; a missing Eagle app is not fatal.
		if err := a.eagleClient().SwitchLibrary(ctx, filepath.Clean(c.Path)); err != nil {
			a.logger.Warn("switch eagle library", "error", err)
			fmt.Fprintln(os.Stderr, "warning: eagle switch failed:", err)
		}
	}
	if err := st.syncer.Run(ctx, filepath.Clean(c.Path)); err != nil {
		return err
	}

	if !flags.JSON {
		fmt.Fprintf(os.Stdout, "active library is now %s\n", c.Path)
		return nil
	}
	status, err := a.store.ActiveLibraryStatus()
	if err != nil {
		return err
	}
	return writeJSON(status)
}

type LibraryRemoveCmd struct{}

func (c *LibraryRemoveCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := a.buildStack(false)
	defer st.watcher.Unwatch()

	if err := st.manager.DeleteActive(ctx); err != nil {
		return err
	}

	libs, err := a.store.ListLibraries()
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(libs)
	}
	if len(libs) == 0 {
		fmt.Fprintln(os.Stdout, "removed; no libraries remain")
		return nil
	}
	fmt.Fprintf(os.Stdout, "removed; active library is now %s\n", libs[0].Path)
	return nil
}

// LibraryHistoryCmd asks the running Eagle app for its recently opened
// libraries and marks which are open there and registered here.
type LibraryHistoryCmd struct{}

func (c *LibraryHistoryCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := a.eagleClient()
	history, err := client.LibraryHistory(ctx)
	if err != nil {
		return err
	}

	open := ""
	if info, err := client.LibraryInfo(ctx); err == nil {
		open = info.Library.Path
	} else {
		a.logger.Warn("read eagle library info", "error", err)
	}

	registered := make(map[string]bool)
	libs, err := a.store.ListLibraries()
	if err != nil {
		return err
	}
	for _, lib := range libs {
		registered[lib.Path] = true
	}

	type row struct {
		Path       string `json:"path"`
		Open       bool   `json:"open"`
		Registered bool   `json:"registered"`
	}
	rows := make([]row, 0, len(history))
	for _, p := range history {
		rows = append(rows, row{Path: p, Open: p == open, Registered: registered[p]})
	}
	if flags.JSON {
		return writeJSON(rows)
	}

	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "eagle reports no library history")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tOPEN\tREGISTERED")
	for _, r := range rows {
		mark := func(b bool) string {
			if b {
				return "*"
			}
			return ""
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Path, mark(r.Open), mark(r.Registered))
	}
	return w.Flush()
}
