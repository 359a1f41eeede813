// FILE: atbashEE/config/cmd/mpconfig/commands.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atbashEE/config"
)

type rootOptions struct {
	files     []string
	envPrefix string
	profiles  []string
	sets      []string
	debug     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "mpconfig",
		Short: "Resolve configuration properties from files, environment and overrides",
		Long: `mpconfig builds a configuration from the given files, the environment and
--set overrides, then resolves properties through the profile and expression
interceptors.

Precedence follows source ordinals: --set (400), environment (300), files (100
unless the file declares config_ordinal). Profile-qualified names such as
%dev.server.port win over server.port when the dev profile is active.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringArrayVarP(&opts.files, "file", "f", nil, "Configuration file (repeatable)")
	flags.StringVar(&opts.envPrefix, "env-prefix", "", "Only consider environment variables with this prefix")
	flags.StringSliceVarP(&opts.profiles, "profile", "p", nil, "Active profiles, highest priority first")
	flags.StringArrayVar(&opts.sets, "set", nil, "Override a property as key=value (repeatable)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newNamesCmd(opts))
	rootCmd.AddCommand(newSourcesCmd(opts))
	rootCmd.AddCommand(newDumpCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))

	return rootCmd
}

// build assembles the configuration described by the persistent flags.
func (o *rootOptions) build() (*config.Config, error) {
	overrides := make(map[string]string, len(o.sets))
	for _, kv := range o.sets {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, expected key=value", kv)
		}
		overrides[key] = value
	}

	b := config.NewBuilder().
		WithArgs(nil).
		WithSources(
			config.NewMapSourceWithOrdinal("SetFlags", overrides, config.OrdinalCLI),
			config.NewEnvSource(o.envPrefix),
		).
		WithSourceFactories(config.NewLocationSourceFactory()).
		WithProfiles(o.profiles...).
		WithLogger(slog.Default())
	for _, f := range o.files {
		b = b.WithFile(f)
	}

	// A missing --file is an error here, unlike for applications
	return b.Build()
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Print the resolved value of a property and the source that supplied it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.build()
			if err != nil {
				return err
			}
			defer cfg.Close()

			v, err := cfg.Value(args[0])
			if err != nil {
				return err
			}
			if v == nil {
				return fmt.Errorf("%w: %s", config.ErrNotFound, args[0])
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, v.Value)
			fmt.Fprintf(w, "# source: %s (ordinal %d)\n", v.SourceName, v.SourceOrdinal)
			return nil
		},
	}
}

func newNamesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "List the known property names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.build()
			if err != nil {
				return err
			}
			defer cfg.Close()

			names, err := cfg.PropertyNames()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the sources in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.build()
			if err != nil {
				return err
			}
			defer cfg.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ORDINAL\tSOURCE")
			for _, src := range cfg.Sources() {
				fmt.Fprintf(tw, "%d\t%s\n", src.Ordinal(), src.Name())
			}
			if p := cfg.Profiles(); len(p) > 0 {
				fmt.Fprintf(tw, "\nprofiles: %s\n", strings.Join(p, ","))
			}
			return tw.Flush()
		},
	}
}

func newDumpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the resolved configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.build()
			if err != nil {
				return err
			}
			defer cfg.Close()
			return cfg.Dump(cmd.OutOrStdout())
		},
	}
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print properties whose value changes while the files are edited",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.build()
			if err != nil {
				return err
			}
			defer cfg.Close()

			if err := cfg.AutoUpdate(); err != nil {
				return err
			}
			changes := cfg.Watch()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Watching for configuration changes. Press Ctrl+C to exit.")
			for {
				select {
				case <-ctx.Done():
					return nil
				case name, ok := <-changes:
					if !ok {
						return nil
					}
					v, err := cfg.Value(name)
					switch {
					case err != nil:
						fmt.Fprintf(w, "%s: %v\n", name, err)
					case v == nil:
						fmt.Fprintf(w, "%s removed\n", name)
					default:
						fmt.Fprintf(w, "%s = %s (%s)\n", name, v.Value, v.SourceName)
					}
				}
			}
		},
	}
}
