package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func newSettingsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read and edit the settings document",
	}
	cmd.AddCommand(newSettingsGetCmd(g), newSettingsSetCmd(g), newSettingsResetCmd(g))
	return cmd
}

func newSettingsGetCmd(g *globals) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var doc document
			if err := newClient(g).getJSON(apiPrefix+"/settings", &doc); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if key != "" {
				v, ok := doc.Values[key]
				if !ok {
					return fmt.Errorf("unknown setting %q", key)
				}
				if structured(g.outputFmt) {
					return printOutput(out, g.outputFmt, map[string]any{key: v})
				}
				fmt.Fprintln(out, formatValue(v))
				return nil
			}
			if structured(g.outputFmt) {
				return printOutput(out, g.outputFmt, doc)
			}
			printDocument(out, doc)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Print a single setting")
	return cmd
}

func newSettingsSetCmd(g *globals) *cobra.Command {
	var (
		file    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "set [key=value ...]",
		Short: "Merge values into the settings document",
		Long: `Merge values into the settings document. Values are parsed as JSON when
possible, so menu_width=200 sends a number and menu_title=Main a string.
With --file the values are read from a JSON object; "-" reads stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			if file != "" {
				fromFile, err := readValuesFile(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				for k, v := range values {
					fromFile[k] = v
				}
				values = fromFile
			}
			if len(values) == 0 && !replace {
				return fmt.Errorf("nothing to set: pass key=value arguments or --file")
			}
			var doc document
			req := writeRequest{Values: values, Replace: replace}
			if err := newClient(g).sendJSON(http.MethodPut, apiPrefix+"/settings", req, &doc); err != nil {
				return err
			}
			return reportDocument(cmd.OutOrStdout(), g.outputFmt, "Settings saved", doc)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with values to set")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace all overrides instead of merging")
	return cmd
}

func newSettingsResetCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset every setting to its default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var doc document
			if err := newClient(g).sendJSON(http.MethodPost, apiPrefix+"/settings/reset", nil, &doc); err != nil {
				return err
			}
			return reportDocument(cmd.OutOrStdout(), g.outputFmt, "Settings reset", doc)
		},
	}
}

func readValuesFile(stdin io.Reader, path string) (map[string]any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("values file must hold a JSON object: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return values, nil
}

func printDocument(w io.Writer, doc document) {
	fmt.Fprintf(w, "Version %d, checksum %s\n", doc.Version, truncate(doc.Checksum, 16))
	if doc.Warning != "" {
		fmt.Fprintf(w, "Warning: %s\n", doc.Warning)
	}
	rows := make([][]string, 0, len(doc.Values))
	for _, k := range sortedKeys(doc.Values) {
		overridden := ""
		if _, ok := doc.Overrides[k]; ok {
			overridden = "*"
		}
		rows = append(rows, []string{k, truncate(formatValue(doc.Values[k]), 60), overridden})
	}
	printTable(w, []string{"Key", "Value", "Overridden"}, rows)
}

func reportDocument(w io.Writer, format, verb string, doc document) error {
	if structured(format) {
		return printOutput(w, format, doc)
	}
	fmt.Fprintf(w, "%s: version %d, checksum %s\n", verb, doc.Version, truncate(doc.Checksum, 16))
	printIssues(w, doc.Issues)
	return nil
}
