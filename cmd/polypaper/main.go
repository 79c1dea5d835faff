package main

import (
	"os"

	"github.com/rustyeddy/polypaper/cmd/polypaper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
