package cmd

import (
	"fmt"
	"os"
	"strings"
)

var (
	version = "0.1.0-dev"
	commit  = ""
	date    = ""
)

func VersionString() string {
	v := strings.TrimSpace(version)

	metadata := make([]string, 0, 2)
	if c := strings.TrimSpace(commit); c != "" {
		metadata = append(metadata, c)
	}
	if d := strings.TrimSpace(date); d != "" {
		metadata = append(metadata, d)
	}

	if len(metadata) == 0 {
		return "eps " + v
	}
	return fmt.Sprintf("eps %s (%s)", v, strings.Join(metadata, " "))
}

type VersionCmd struct{}

func (c *VersionCmd) Run(flags *RootFlags) error {
	if flags.JSON {
		return writeJSON(map[string]any{
			"version": strings.TrimSpace(version),
			"commit":  strings.TrimSpace(commit),
			"date":    strings.TrimSpace(date),
		})
	}
	fmt.Fprintln(os.Stdout, VersionString())
	return nil
}
