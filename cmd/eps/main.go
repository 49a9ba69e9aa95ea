package main

import (
	"os"

	"github.com/kafky-yu/eagle-pics-server/internal/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
