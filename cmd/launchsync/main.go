// Package main provides the launchsync CLI: register game servers, check
// their status, and keep local client files in sync with their manifests.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
