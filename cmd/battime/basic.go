package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/battime/pkg/presentation"
	"github.com/charlie0129/battime/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "refresh",
		Short:   "Make the daemon read the power source now",
		GroupID: gAdvanced,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := apiClient.Refresh()
			if err != nil {
				return err
			}
			printDisplayLine(cmd, d)
			return nil
		},
	}
}

func NewLocaleCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "locale [tag]",
		Short:   "Set the locale used to format labels",
		GroupID: gDisplay,
		Long: `Set the locale used to format labels.

The tag is a BCP 47 language tag such as "en", "de-DE" or "ar-EG". It only changes how numbers are rendered; labels keep the "H:MM" and "N %" shapes.`,
		RunE: func(_ *cobra.Command, args []string) error {
			locale, err := parseStringArg(args, "locale")
			if err != nil {
				return err
			}

			ret, err := apiClient.SetLocale(locale)
			if err != nil {
				return fmt.Errorf("failed to set locale: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set locale to %s", locale)

			return nil
		},
	}
}

func NewPercentSeparatorCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "percent-separator [separator]",
		Short:   "Set the text between the number and the percent sign",
		GroupID: gDisplay,
		Long: `Set the text between the number and the percent sign.

The default is a plain space ("73 %"). Use "thin" for a thin space, or "" for none.`,
		RunE: func(_ *cobra.Command, args []string) error {
			sep, err := parseStringArg(args, "separator")
			if err != nil {
				return err
			}
			if sep == "thin" {
				sep = presentation.ThinSpace
			}

			ret, err := apiClient.SetPercentSeparator(sep)
			if err != nil {
				return fmt.Errorf("failed to set percent separator: %v", err)
			}

			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set percent separator to %q", sep)

			return nil
		},
	}
}
