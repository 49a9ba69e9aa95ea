package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// LogsCmd lists recorded per-item sync failures, newest first.
type LogsCmd struct {
	Limit int `help:"Maximum rows to show" default:"50"`
}

func (c *LogsCmd) Run(flags *RootFlags) error {
	a, err := openApp(flags)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.Logs(c.Limit)
	if err != nil {
		return err
	}
	if flags.JSON {
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no sync failures recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tPATH\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Type, e.Path, e.Message)
	}
	return w.Flush()
}
