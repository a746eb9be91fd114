// Command slash runs a Slash script: from a file named on the command line,
// or from stdin when no file is given.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mikkeldamsgaard/slash-go/internal/interp"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	var (
		src        string
		includeDir string
		scriptArgs []string
	)

	if len(argv) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "slash: could not read from stdin:", err)
			return 1
		}
		src = string(data)
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "slash: could not determine current directory:", err)
			return 1
		}
		includeDir = wd
	} else {
		script := argv[0]
		data, err := os.ReadFile(script)
		if err != nil {
			fmt.Fprintln(os.Stderr, "slash: could not read script", script+":", err)
			return 1
		}
		src = string(data)
		includeDir = filepath.Dir(script)
		scriptArgs = argv[1:]
	}

	in := interp.New(interp.Options{
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Args:       scriptArgs,
		IncludeDir: includeDir,
	})
	return in.Run(src)
}
