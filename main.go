// The main package for the movie-harvester executable.
package main

import (
	"github.com/JakeFAU/movie-harvester/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
