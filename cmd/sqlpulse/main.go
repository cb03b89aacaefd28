package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set during build using ldflags
var Version = "dev"

func main() {
	app := &cli.Command{
		Name:    "sqlpulse",
		Version: Version,
		Usage:   "Continuous-writes test harness for MySQL high availability",
		Commands: []*cli.Command{
			versionCmd,
			validateCmd,
			serveCmd,
			actionCmd,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
