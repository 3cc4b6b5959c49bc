package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/timelinewatch/internal/cliconfig"
)

const helpDescription = `
Play a scripted animation document through a timeline observer and log every
lifecycle event it synthesizes: start, progress, pause, resume and complete.

Scripts are TOML or YAML files declaring timelines, symbol instances and timed
actions (play, pause, goto, scene). Configure via file, env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  timelinewatch simulate --script intro.toml
  timelinewatch simulate --script intro.yaml --realtime --watch
  timelinewatch simulate --script intro.toml --metrics --log-format json
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root := &cobra.Command{
		Use:           "timelinewatch",
		Short:         "Synthesize timeline lifecycle events from playhead polling",
		Long:          strings.TrimSpace(helpDescription),
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSimulateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "timelinewatch: %v\n", err)
		os.Exit(1)
	}
}

func newSimulateCmd() *cobra.Command {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Run a simulation script and log lifecycle events",
		Example: exampleUsage,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// Env overrides the file; flags override both via changed.
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runSimulate(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.timelinewatch/config.toml)")
	cmd.Flags().StringVar(&cfg.Script, "script", cfg.Script, "simulation script (.toml, .yaml or .yml)")
	cmd.Flags().DurationVar(&cfg.FrameInterval, "frame", cfg.FrameInterval, "polling interval and simulation step")
	cmd.Flags().BoolVar(&cfg.Realtime, "realtime", cfg.Realtime, "pace the simulation on the wall clock")
	cmd.Flags().BoolVar(&cfg.Watch, "watch", cfg.Watch, "rerun the simulation whenever the script changes")
	cmd.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "delay after a script change before reloading")
	cmd.Flags().BoolVar(&cfg.Metrics, "metrics", cfg.Metrics, "print prometheus metrics after each run")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (auto, console, json)")

	return cmd
}
