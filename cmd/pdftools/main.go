package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	root := NewRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
