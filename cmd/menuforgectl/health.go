package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := newClient(g)

			var health map[string]any
			if err := client.getJSON("/healthz", &health); err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			var ready map[string]any
			if err := client.getJSON("/readyz", &ready); err != nil {
				// Not fatal: the server may still be starting.
				ready = map[string]any{"status": "unknown", "error": err.Error()}
			}

			out := cmd.OutOrStdout()
			if structured(g.outputFmt) {
				return printOutput(out, g.outputFmt, map[string]any{"health": health, "readiness": ready})
			}
			status, _ := health["status"].(string)
			uptime, _ := health["uptime"].(string)
			readiness, _ := ready["status"].(string)
			printTable(out, []string{"Check", "Status"}, [][]string{
				{"Liveness", status},
				{"Uptime", uptime},
				{"Readiness", readiness},
			})
			return nil
		},
	}
}
