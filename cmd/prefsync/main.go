// Command prefsync validates settings configurations, exports their JSON
// Schema, and runs an engine that follows a profile file on disk.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
