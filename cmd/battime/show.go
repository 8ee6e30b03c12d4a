package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/config"
	"github.com/charlie0129/battime/pkg/power"
	"github.com/charlie0129/battime/pkg/presentation"
)

// showTimeout bounds a one-shot read, including the UPower probe.
const showTimeout = 10 * time.Second

func NewShowCommand() *cobra.Command {
	var (
		asJSON    bool
		source    string
		locale    string
		separator string
	)

	cmd := &cobra.Command{
		Use:     "show",
		GroupID: gBasic,
		Short:   "Read the power source once and print the display state",
		Long: `Read the power source once and print the display state.

This does not need a running daemon. Flags override the config file for this run only.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to load config")
			}

			if !cmd.Flags().Changed("source") {
				source = conf.Source()
			}
			if !cmd.Flags().Changed("locale") {
				locale = conf.Locale()
			}
			if !cmd.Flags().Changed("separator") {
				separator = conf.PercentSeparator()
			}

			f, err := presentation.NewFormatter(locale, separator)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), showTimeout)
			defer cancel()

			src, err := power.Open(ctx, source, conf.PollInterval())
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			s, err := src.Snapshot(ctx)
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to read %s", src.Name())
			}

			d := presentation.Derive(s, f)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(d)
			}

			printDisplayLine(cmd, d)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&asJSON, "json", false, "print the display state as JSON")
	flags.StringVar(&source, "source", power.SourceAuto, "power source (auto, upower, battery)")
	flags.StringVar(&locale, "locale", presentation.DefaultLocale, "BCP 47 locale for number formatting")
	flags.StringVar(&separator, "separator", presentation.DefaultPercentSeparator, "text between the number and the percent sign")

	return cmd
}

// printDisplayLine prints one display state in a single line on stdout.
func printDisplayLine(cmd *cobra.Command, d presentation.DisplayState) {
	out := cmd.OutOrStdout()
	if !d.Visible {
		fmt.Fprintln(out, "no battery")
		return
	}
	if d.Label == d.PercentageLabel {
		fmt.Fprintf(out, "%s  %s\n", bold("%s", d.Label), d.IconID)
		return
	}
	fmt.Fprintf(out, "%s  %s  %s\n", bold("%s", d.Label), d.PercentageLabel, d.IconID)
}
