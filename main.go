// The main package for the cf1400 executable.
package main

import (
	"github.com/rstiegler/cf1400-downloader/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
