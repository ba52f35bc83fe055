package main

import (
	"embed"
	"io/fs"
	"os"

	"stepjourney/internal/cli"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	dist, err := fs.Sub(assets, "frontend/dist")
	if err != nil {
		os.Exit(1)
	}
	if err := cli.NewRootCmd(dist).Execute(); err != nil {
		os.Exit(1)
	}
}
