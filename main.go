package main

import (
	"fmt"
	"os"

	"ualogger/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ualogger:", err)
		os.Exit(cli.ExitCode(err))
	}
}
