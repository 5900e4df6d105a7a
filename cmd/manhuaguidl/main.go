package main

import (
	"os"

	"github.com/lanyeeee/manhuagui-downloader/internal/cli"
)

// version is set at build time via ldflags.
var version = "0.1.0-dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
