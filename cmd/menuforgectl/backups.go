package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newBackupsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backups",
		Aliases: []string{"backup"},
		Short:   "Manage settings backups",
	}
	cmd.AddCommand(newBackupsListCmd(g), newBackupsCreateCmd(g), newBackupsRestoreCmd(g), newBackupsDeleteCmd(g))
	return cmd
}

func newBackupsListCmd(g *globals) *cobra.Command {
	var (
		typ           string
		offset, limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if typ != "" {
				q.Set("type", typ)
			}
			if offset > 0 {
				q.Set("offset", strconv.Itoa(offset))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := apiPrefix + "/backups"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			var list backupList
			if err := newClient(g).getJSON(path, &list); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if structured(g.outputFmt) {
				return printOutput(out, g.outputFmt, list)
			}
			rows := make([][]string, 0, len(list.Items))
			for _, b := range list.Items {
				rows = append(rows, []string{
					b.ID,
					b.Type,
					strconv.FormatInt(b.Version, 10),
					b.CreatedAt.Format("2006-01-02 15:04:05"),
					b.Reason,
					truncate(b.Note, 40),
				})
			}
			printTable(out, []string{"ID", "Type", "Version", "Created", "Reason", "Note"}, rows)
			fmt.Fprintf(out, "\n%d of %d backups\n", list.Size, list.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "Filter by type (manual or automatic)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Skip this many backups")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum backups to list")
	return cmd
}

func newBackupsCreateCmd(g *globals) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a manual backup of the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var b backupInfo
			body := map[string]string{"note": note}
			if err := newClient(g).sendJSON(http.MethodPost, apiPrefix+"/backups", body, &b); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if structured(g.outputFmt) {
				return printOutput(out, g.outputFmt, b)
			}
			fmt.Fprintf(out, "Backup %s created (version %d)\n", b.ID, b.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Note stored with the backup")
	return cmd
}

func newBackupsRestoreCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore a backup as the live settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc document
			path := apiPrefix + "/backups/" + url.PathEscape(args[0]) + "/restore"
			if err := newClient(g).sendJSON(http.MethodPost, path, nil, &doc); err != nil {
				return fmt.Errorf("restore %s: %w", args[0], err)
			}
			return reportDocument(cmd.OutOrStdout(), g.outputFmt, "Restored "+args[0], doc)
		},
	}
}

func newBackupsDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := apiPrefix + "/backups/" + url.PathEscape(args[0])
			if err := newClient(g).sendJSON(http.MethodDelete, path, nil, nil); err != nil {
				return fmt.Errorf("delete %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup %s deleted\n", args[0])
			return nil
		},
	}
}
