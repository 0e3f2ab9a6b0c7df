// Package main runs the menuforge settings server: the settings document,
// its backups, the derived stylesheet and the live preview behind one HTTP
// API.
package main

import (
	goflag "flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// options are the command-line settings. Every flag can also be set via
// MENUFORGE_<FLAG> with dashes replaced by underscores.
type options struct {
	Listen      string
	DBType      string
	DBDSN       string
	AuthMode    string
	LogFormat   string
	LogLevel    string
	CORSOrigins []string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		glog.Fatalf("menuforge-server: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:           "menuforge-server",
		Short:         "Serve menu settings, backups, stylesheets and previews",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := loadOptions(v, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := newLogger(os.Stdout, opts.LogFormat, opts.LogLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, logger)
		},
	}

	flags := cmd.Flags()
	flags.String("listen", ":8080", "Address to listen on")
	flags.String("db-type", "", "Database type (sqlite, postgres or mysql); defaults to DATABASE_TYPE, then sqlite")
	flags.String("db-dsn", "", "Database connection string; defaults to DATABASE_DSN")
	flags.String("auth-mode", "", "Identity source (header or jwt)")
	flags.String("log-format", "text", "Log format (text or json)")
	flags.String("log-level", "info", "Log level (debug, info, warn or error)")
	flags.StringSlice("cors-origins", nil, "Allowed CORS origins")

	// glog registers its flags on the standard flag set.
	_ = goflag.Set("logtostderr", "true")
	cmd.PersistentFlags().AddGoFlagSet(goflag.CommandLine)
	return cmd
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MENUFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func loadOptions(v *viper.Viper, flags *pflag.FlagSet) (options, error) {
	if err := v.BindPFlags(flags); err != nil {
		return options{}, fmt.Errorf("bind flags: %w", err)
	}
	opts := options{
		Listen:      v.GetString("listen"),
		DBType:      v.GetString("db-type"),
		DBDSN:       v.GetString("db-dsn"),
		AuthMode:    v.GetString("auth-mode"),
		LogFormat:   v.GetString("log-format"),
		LogLevel:    v.GetString("log-level"),
		CORSOrigins: v.GetStringSlice("cors-origins"),
	}
	if opts.Listen == "" {
		return options{}, fmt.Errorf("listen address must not be empty")
	}
	return opts, nil
}

func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected text or json)", format)
	}
}
