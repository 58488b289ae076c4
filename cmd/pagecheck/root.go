package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/networkteam/pagecheck/config"
	"github.com/networkteam/pagecheck/scenario"
)

// app is the state shared by the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
	closers []func() error
	now     func() time.Time
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New(), now: time.Now}

	cmd := &cobra.Command{
		Use:          "pagecheck",
		Short:        "End-to-end checks for the landing page builder",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logger, closeLog, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
			if err != nil {
				return err
			}
			a.logger = logger
			a.closers = append(a.closers, closeLog)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default ./pagecheck.yaml)")
	flags.String("fixtures", "", "scenario file to use instead of the built-in scenarios")
	flags.StringSlice("tags", nil, "only scenarios carrying all tags, e.g. @e2e,@gated")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	a.bind(cmd, "fixtures", "fixtures")
	a.bind(cmd, "tags", "tags")
	a.bind(cmd, "log.level", "log-level")

	cmd.AddCommand(
		newListCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
		newInstallCmd(a),
		newStubCmd(a),
	)
	return cmd, a
}

// bind makes a flag override the config key when it is set.
func (a *app) bind(cmd *cobra.Command, key, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if err := a.v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

// close releases what PersistentPreRunE opened.
func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// scenarios loads the configured scenarios and applies the tag filter.
func (a *app) scenarios() ([]scenario.Scenario, error) {
	var (
		all []scenario.Scenario
		err error
	)
	if a.cfg.Fixtures != "" {
		all, err = scenario.LoadFile(a.cfg.Fixtures, a.now())
	} else {
		all, err = scenario.Builtin(a.now())
	}
	if err != nil {
		return nil, err
	}
	return scenario.Filter(all, a.cfg.Tags...), nil
}
