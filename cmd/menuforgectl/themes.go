package main

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newThemesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List and apply theme presets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List theme presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list themeList
			if err := newClient(g).getJSON(apiPrefix+"/themes", &list); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if structured(g.outputFmt) {
				return printOutput(out, g.outputFmt, list)
			}
			rows := make([][]string, 0, len(list.Themes))
			for _, t := range list.Themes {
				rows = append(rows, []string{t.Name, t.Label, strconv.Itoa(len(t.Values)), truncate(t.Description, 50)})
			}
			printTable(out, []string{"Name", "Label", "Values", "Description"}, rows)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "apply <name>",
		Short: "Merge a preset into the settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc document
			path := apiPrefix + "/themes/" + url.PathEscape(args[0]) + "/apply"
			if err := newClient(g).sendJSON(http.MethodPost, path, nil, &doc); err != nil {
				return err
			}
			return reportDocument(cmd.OutOrStdout(), g.outputFmt, "Applied theme "+args[0], doc)
		},
	})
	return cmd
}
