package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"sortify/cmd"
)

// Release builds may still override this with -ldflags "-X sortify/cmd.Version=...".
//
//go:embed VERSION
var embeddedVersion string

func main() {
	if v := strings.TrimPrefix(strings.TrimSpace(embeddedVersion), "v"); v != "" && cmd.Version == "dev" {
		cmd.Version = v
	}
	cmd.ApplyVersion()

	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code := 1
		var ee *cmd.ExitError
		if errors.As(err, &ee) && ee.ExitCode() != 0 {
			code = ee.ExitCode()
		}
		os.Exit(code)
	}
}
