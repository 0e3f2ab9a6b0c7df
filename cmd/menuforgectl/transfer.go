package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the settings envelope to a file or stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, _, err := newClient(g).do(http.MethodGet, apiPrefix+"/export", nil, "")
			if err != nil {
				return err
			}
			if file == "" || file == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(file, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", file, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported settings to %s\n", file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the settings with an exported envelope",
		Long:  `Replace the settings with an exported envelope. Use "-" to read stdin.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read envelope: %w", err)
			}
			resp, _, err := newClient(g).do(http.MethodPost, apiPrefix+"/import", bytes.NewReader(data), "application/json")
			if err != nil {
				return err
			}
			var doc document
			if err := decodeInto(resp, &doc); err != nil {
				return err
			}
			return reportDocument(cmd.OutOrStdout(), g.outputFmt, "Imported", doc)
		},
	}
}
