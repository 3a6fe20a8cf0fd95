package main

import (
	"os"

	"github.com/adalundhe/ctxsync/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
