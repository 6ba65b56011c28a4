package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/popspot/popchat/internal/daemon"
	"github.com/popspot/popchat/internal/profile"
	"go.uber.org/fx"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	levelFlag := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{ProfileName: name, LogLevel: *levelFlag}),
		fx.NopLogger,
	)

	app.Run()
}
