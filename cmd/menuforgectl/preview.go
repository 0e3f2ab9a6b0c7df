package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newPreviewCmd(g *globals) *cobra.Command {
	var (
		session  string
		sequence int64
		cssOut   string
	)
	cmd := &cobra.Command{
		Use:   "preview [key=value ...]",
		Short: "Render the stylesheet for candidate values without saving them",
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			if session == "" {
				session = "cli-" + strconv.Itoa(os.Getpid())
			}
			if sequence <= 0 {
				sequence = time.Now().UnixMilli()
			}

			var res previewResult
			req := previewRequest{Session: session, Sequence: sequence, Values: values}
			if err := newClient(g).sendJSON(http.MethodPost, apiPrefix+"/preview", req, &res); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if structured(g.outputFmt) {
				return printOutput(out, g.outputFmt, res)
			}
			if cssOut != "" {
				if err := os.WriteFile(cssOut, []byte(res.CSS), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", cssOut, err)
				}
				fmt.Fprintf(out, "Preview written to %s (checksum %s)\n", cssOut, truncate(res.Checksum, 16))
			} else {
				fmt.Fprint(out, res.CSS)
			}
			if res.Fallback {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: generation failed, showing the fallback stylesheet")
			}
			printIssues(cmd.ErrOrStderr(), res.Issues)
			return nil
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Preview session id (default per process)")
	cmd.Flags().Int64Var(&sequence, "sequence", 0, "Sequence number (default current time in ms)")
	cmd.Flags().StringVar(&cssOut, "css-out", "", "Write the stylesheet to this file")
	return cmd
}
