package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/networkteam/pagecheck"
	"github.com/networkteam/pagecheck/collector"
	"github.com/networkteam/pagecheck/report"
	"github.com/networkteam/pagecheck/scenario"
)

// errChecksFailed is returned when at least one scenario failed.
var errChecksFailed = errors.New("checks failed")

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario-id...]",
		Short: "Run scenarios in a browser and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := a.scenarios()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				scenarios, err = selectIDs(scenarios, args)
				if err != nil {
					return err
				}
			}
			if err := validate(scenarios); err != nil {
				return err
			}
			if len(scenarios) == 0 {
				return errors.New("no scenarios match")
			}

			suite, err := pagecheck.NewWithOptions(a.cfg.Options(a.logger))
			if err != nil {
				return err
			}
			defer func() {
				if err := suite.Close(); err != nil {
					a.logger.Warn("Closing suite failed", slog.Any("error", err))
				}
			}()

			out := cmd.OutOrStdout()
			title := "Landing page checks (" + a.cfg.Ref + ")"
			if a.cfg.Dashboard != "" {
				dashCtx, stopDashboard := context.WithCancel(cmd.Context())
				addr, served, err := startDashboard(dashCtx, a.cfg.Dashboard, suite.Journal(), title, a.logger)
				if err != nil {
					stopDashboard()
					return err
				}
				defer func() {
					stopDashboard()
					if err := <-served; err != nil {
						a.logger.Warn("Dashboard stopped with error", slog.Any("error", err))
					}
				}()
				fmt.Fprintf(out, "dashboard: http://%s/\n", addr)
			}

			followCtx, stopFollow := context.WithCancel(cmd.Context())
			defer stopFollow()
			done := follow(followCtx, out, suite.Subscribe(followCtx), len(scenarios))

			start := time.Now()
			reports, runErr := suite.Run(cmd.Context(), scenarios)
			select {
			case <-done:
			case <-time.After(time.Second):
				// Scenarios that never started publish no finish event.
			}
			stopFollow()
			<-done

			fmt.Fprintln(out)
			report.PrintSummary(out, reports)
			a.logger.Info("Run finished", slog.Int("scenarios", len(scenarios)), slog.Duration("duration", time.Since(start)))

			if a.cfg.Report != "" {
				renderer := suite.Renderer(report.WithTitle(title))
				if err := renderer.WriteFile(context.WithoutCancel(cmd.Context()), a.cfg.Report, reports); err != nil {
					return err
				}
				fmt.Fprintf(out, "report: %s\n", a.cfg.Report)
			}

			if runErr != nil {
				return runErr
			}
			if report.Summarize(reports).Failed > 0 {
				return errChecksFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("base-url", "", "origin serving the builder")
	flags.String("ref", "", "content branch passed to the builder")
	flags.Int("parallel", 0, "scenarios running at the same time")
	flags.Bool("headless", true, "hide the browser window")
	flags.String("report", "", "path of the HTML report, empty to skip")
	flags.String("screenshots", "", "directory for failure screenshots")
	flags.String("assets", "", "directory of asset: payload files")
	flags.String("dashboard", "", "serve a live dashboard on this address while running, e.g. 127.0.0.1:8090")
	a.bind(cmd, "base_url", "base-url")
	a.bind(cmd, "ref", "ref")
	a.bind(cmd, "parallel", "parallel")
	a.bind(cmd, "headless", "headless")
	a.bind(cmd, "report", "report")
	a.bind(cmd, "screenshot_dir", "screenshots")
	a.bind(cmd, "assets_dir", "assets")
	a.bind(cmd, "dashboard", "dashboard")
	return cmd
}

// selectIDs picks scenarios by id, in the order given.
func selectIDs(all []scenario.Scenario, ids []string) ([]scenario.Scenario, error) {
	var (
		selected []scenario.Scenario
		missing  []string
	)
	for _, id := range ids {
		s, ok := scenario.Find(all, id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		selected = append(selected, s)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown scenario ids: %s", strings.Join(missing, ", "))
	}
	return selected, nil
}

// follow prints progress until want scenarios finished or ctx ends. The
// returned channel is closed when printing stopped.
func follow(ctx context.Context, w io.Writer, events <-chan collector.Event, want int) <-chan struct{} {
	done := make(chan struct{})
	forward := make(chan collector.Event)
	go func() {
		defer close(forward)
		finished := 0
		for finished < want {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if evt.Kind == collector.EventScenarioFinished {
					finished++
				}
				select {
				case forward <- evt:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	go func() {
		defer close(done)
		report.Follow(ctx, w, forward)
	}()
	return done
}
