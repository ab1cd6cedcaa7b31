// Package main is the single-binary entrypoint for anima.
package main

import "github.com/anima-project/anima/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
