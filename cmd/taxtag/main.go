// Package main provides the taxtag CLI application.
// taxtag writes taxonomy metadata to observation photos.
package main

import (
	"os"
)

var (
	// Version is set by build flags
	Version = "dev"
)

func main() {
	if err := getRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
