package main

import (
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/cobra"
)

func newInstallCmd(a *app) *cobra.Command {
	var browsers []string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the playwright driver and browsers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.logger.Info("Installing playwright", slog.Any("browsers", browsers))
			if err := playwright.Install(&playwright.RunOptions{
				Browsers: browsers,
				Verbose:  true,
			}); err != nil {
				return fmt.Errorf("installing playwright: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "playwright installed")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&browsers, "browsers", []string{"chromium"}, "browsers to install")
	return cmd
}
