package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	serverURL string
	outputFmt string
	user      string
	groups    []string
	token     string
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "menuforgectl",
		Short: "CLI for the menuforge settings server",
		Long: `menuforgectl reads and edits the menu settings document, manages its
backups, moves it between installations and renders live previews.

The caller identity is sent as X-Remote-User/X-Remote-Group headers, or as a
bearer token with --token when the server runs in jwt mode.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.serverURL, "server", envOrDefault("MENUFORGE_SERVER", "http://localhost:8080"), "menuforge server URL")
	pf.StringVarP(&g.outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	pf.StringVar(&g.user, "user", os.Getenv("MENUFORGE_USER"), "User sent as X-Remote-User")
	pf.StringSliceVar(&g.groups, "group", nil, "Group sent as X-Remote-Group (repeatable)")
	pf.StringVar(&g.token, "token", os.Getenv("MENUFORGE_TOKEN"), "Bearer token")

	root.AddCommand(
		newSettingsCmd(g),
		newBackupsCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newPreviewCmd(g),
		newThemesCmd(g),
		newHealthCmd(g),
	)
	return root
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
