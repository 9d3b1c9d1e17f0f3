package main

import (
	"os"
)

func main() {
	if err := newRootCmd(buildExtractor).Execute(); err != nil {
		os.Exit(1)
	}
}
