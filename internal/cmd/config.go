package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kafky-yu/eagle-pics-server/internal/config"
)

// ConfigCmd prints the effective configuration and the paths in use.
type ConfigCmd struct{}

func (c *ConfigCmd) Run(flags *RootFlags) error {
	if flags.ConfigDir != "" {
		config.SetDir(flags.ConfigDir)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	dbPath, err := config.DBPath()
	if err != nil {
		return err
	}

	if flags.JSON {
		return writeJSON(map[string]any{
			"configDir": dir,
			"dbPath":    dbPath,
			"server":    cfg.Server,
			"client":    cfg.Client,
			"eagle":     cfg.Eagle,
			"sync":      cfg.Sync,
			"logging":   cfg.Logging,
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "config dir\t%s\n", dir)
	fmt.Fprintf(w, "database\t%s\n", dbPath)
	fmt.Fprintf(w, "server\t%s:%d\n", cfg.Server.IP, cfg.Server.Port)
	fmt.Fprintf(w, "client port\t%d\n", cfg.Client.Port)
	fmt.Fprintf(w, "theme\t%s (%s)\n", cfg.Client.Theme, cfg.Client.ThemeDir)
	fmt.Fprintf(w, "eagle\t%s\n", cfg.Eagle.URL)
	fmt.Fprintf(w, "debounce\t%s\n", cfg.Sync.Debounce)
	fmt.Fprintf(w, "auto sync\t%t\n", cfg.Sync.AutoSync)
	fmt.Fprintf(w, "diff on start\t%t\n", cfg.Sync.StartDiffLibrary)
	fmt.Fprintf(w, "log file\t%s\n", cfg.Logging.File)
	fmt.Fprintf(w, "log level\t%s\n", cfg.Logging.Level)
	return w.Flush()
}
