// Command menuforgectl manages a menuforge server: the settings document,
// backups, export and import, previews and theme presets.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
