package main

import (
	"os"
	"path/filepath"

	"github.com/bitnames/bitnames/cmd/bitnamescli"
	"github.com/bitnames/bitnames/cmd/bitnamesd"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "bitnames"

// Version & commit strings injected at build with -ldflags -X...
var version string
var commit string

func main() {
	switch {
	case filepath.Base(os.Args[0]) == "bitnames-cli":
		bitnamescli.Start(os.Args[1:], version)
	case len(os.Args) > 1 && os.Args[1] == "cli":
		bitnamescli.Start(os.Args[2:], version)
	default:
		bitnamesd.RunDaemon(progname, version, commit)
	}
}
