package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ServeCmd is the long-running mode: it restores the watch on the active
// library, starts the gallery server, and runs until interrupted.
type ServeCmd struct{}

func (c *ServeCmd) Run(flags *RootFlags) error {
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

	st := a.buildStack(true)
	if err := st.server.Start(); err != nil {
		return err
	}

	if err := st.manager.Resume(ctx); err != nil {
		a.logger.Error("resume watch", "error", err)
		fmt.Fprintln(os.Stderr, "warning:", err)
	}

	fmt.Fprintf(os.Stdout, "serving on %s (ctrl-c to stop)\n", st.server.Addr())
	<-ctx.Done()

	if err := st.watcher.Unwatch(); err != nil {
		a.logger.Warn("stop watch", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return st.server.Shutdown(shutdownCtx)
}
