package main

import (
	"os"

	"github.com/bianoble/bundlekit/cmd/bundlekit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
