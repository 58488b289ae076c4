package main

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/networkteam/pagecheck/internal/stubapp"
	"github.com/networkteam/pagecheck/page"
)

func newStubCmd(a *app) *cobra.Command {
	var (
		addr      string
		formDelay time.Duration
		taken     []string
	)
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a local stand-in for the builder and its preview host",
		Long: "Serves the builder markup the checks target together with upload, save,\n" +
			"preview and form endpoints. Point base_url at it and add its host to\n" +
			"preview_hosts to run the checks offline.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", addr, err)
			}
			srv := &http.Server{
				Handler: stubapp.New(
					stubapp.WithLogger(a.logger),
					stubapp.WithFormDelay(formDelay),
					stubapp.WithTakenPaths(taken...),
				),
				ReadHeaderTimeout: 5 * time.Second,
			}
			base := "http://" + ln.Addr().String()
			fmt.Fprintf(cmd.OutOrStdout(), "builder at %s%s\n", base, page.BuilderPath)
			fmt.Fprintf(cmd.OutOrStdout(), "run with: pagecheck run --base-url %s (preview_hosts: [%q])\n", base, regexpHost(ln.Addr()))
			return serve(cmd.Context(), srv, ln, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8088", "listen address")
	cmd.Flags().DurationVar(&formDelay, "form-delay", stubapp.DefaultFormDelay, "delay of the embedded form script")
	cmd.Flags().StringSliceVar(&taken, "taken", nil, "page names the path check reports as taken")
	return cmd
}
