package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/networkteam/pagecheck/journey"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the scenarios matching the tag filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := a.scenarios()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range scenarios {
				kind := "feature"
				if s.IsJourney() {
					kind = "journey"
				} else if !journey.Has(s) {
					kind = "no plan"
				}
				fmt.Fprintf(w, "%-30s %-8s %s [%s]\n", s.ID, kind, s.Name, strings.Join(s.Tags, " "))
			}
			fmt.Fprintf(w, "%d scenarios\n", len(scenarios))
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check scenario payloads and that every scenario has a plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := a.scenarios()
			if err != nil {
				return err
			}
			if err := validate(scenarios); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d scenarios valid\n", len(scenarios))
			return nil
		},
	}
}
