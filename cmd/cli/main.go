package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"community-load/internal/config"
	"community-load/internal/paths"
	"community-load/internal/pipeline"

	"github.com/spf13/cobra"
	"gopkg.in/cheggaaa/pb.v1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clp",
		Short:        "Community load profiles from ResStock/ComStock building samples",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

// overrides are the command-line switches layered on top of the scenario file.
type overrides struct {
	fastIO        bool
	maxWorkers    int
	noPrune       bool
	enableWeather bool
	weatherFiles  []string
	weatherUnits  string
	profiles      bool
	noProfiles    bool
}

func (o *overrides) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.fastIO, "fast-io", false, "read building files with a parallel worker pool")
	f.IntVar(&o.maxWorkers, "max-workers", 0, "worker count for --fast-io")
	f.BoolVar(&o.noPrune, "no-prune-parquet-columns", false, "read every parquet column")
	f.BoolVar(&o.enableWeather, "enable-weather", false, "join outdoor air temperature")
	f.StringSliceVar(&o.weatherFiles, "weather-file", nil, "weather CSV (repeatable, replaces weather.files)")
	f.StringVar(&o.weatherUnits, "weather-units", "", "preferred temperature units, C or F")
	f.BoolVar(&o.profiles, "profiles", false, "write typical-day profiles")
	f.BoolVar(&o.noProfiles, "no-profiles", false, "skip typical-day profiles")
	cmd.MarkFlagsMutuallyExclusive("profiles", "no-profiles")
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.ScenarioConfig) (*config.ScenarioConfig, error) {
	f := cmd.Flags()

	perf := cfg.Performance
	if f.Changed("fast-io") {
		perf.FastIO = o.fastIO
	}
	if f.Changed("max-workers") {
		perf.MaxWorkers = o.maxWorkers
	}
	if o.noPrune {
		perf.PruneParquetColumns = false
	}
	cfg = cfg.WithPerformance(perf)

	wx := cfg.Weather
	if o.enableWeather {
		wx.Enabled = true
	}
	if len(o.weatherFiles) > 0 {
		wx.Files = o.weatherFiles
		wx.SourceLabels = nil
	}
	if o.weatherUnits != "" {
		wx.PreferredUnits = strings.ToUpper(o.weatherUnits)
	}
	cfg = cfg.WithWeather(wx)

	if o.profiles || o.noProfiles {
		p := cfg.Profiles
		p.WriteTypicalDayByMonth = o.profiles
		cfg = cfg.WithProfiles(p)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var (
		o       overrides
		runID   string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and write its outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if cfg, err = o.apply(cmd, cfg); err != nil {
				return err
			}
			if runID != "" {
				cfg = cfg.WithRunID(runID)
			}

			logger := log.New(io.Discard, "", log.LstdFlags)
			var bar *pb.ProgressBar
			opts := []pipeline.Option{}
			if verbose {
				logger.SetOutput(cmd.ErrOrStderr())
			} else {
				opts = append(opts, pipeline.WithProgress(func(p pipeline.Progress) {
					if bar == nil {
						bar = pb.New(p.Total).Prefix("runs ")
						bar.Output = cmd.ErrOrStderr()
						bar.ShowTimeLeft = false
						bar.Start()
					}
					bar.Set(p.Current)
				}))
			}
			opts = append(opts, pipeline.WithLogger(logger))

			res, err := pipeline.New(cfg, opts...).Run(cmd.Context())
			if bar != nil {
				bar.Finish()
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %d sample run(s), %d file(s) in %s\n", res.RunID, len(res.Runs), len(res.Files), res.ScenarioDir)
			for _, s := range res.Summaries {
				fmt.Fprintf(out, "  %-12s peak %.3f kWh at %s, mean %.3f, load factor %.3f\n",
					s.Series, s.Max, s.PeakAt.Format("2006-01-02 15:04"), s.Mean, s.LoadFactor)
			}
			return nil
		},
	}
	o.register(cmd)
	cmd.Flags().StringVar(&runID, "run-id", "", "override run_id (default: config value or a timestamp)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print pipeline logs instead of a progress bar")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var (
		o           overrides
		checkInputs bool
	)
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Check a scenario file and, optionally, that its inputs exist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if cfg, err = o.apply(cmd, cfg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: state %s, upgrade %d, %d run(s), %d buildings (%.0f%% multifamily)\n",
				args[0], cfg.State, cfg.UpgradeNum, cfg.SampleRuns, cfg.Neighborhood.TotalBuildings,
				cfg.Neighborhood.MultifamilyFraction*100)
			if !checkInputs {
				return nil
			}

			r := paths.Resolve(cfg, cfg.RunID)
			inputs := []string{r.ResstockCharacteristics, r.ComstockCharacteristics, r.ResstockTimeseriesDir, r.ComstockTimeseriesDir}
			if cfg.Weather.Enabled {
				inputs = append(inputs, cfg.Weather.Files...)
			}
			var missing int
			for _, p := range inputs {
				if _, err := os.Stat(p); err != nil {
					fmt.Fprintf(out, "  missing: %s\n", p)
					missing++
				}
			}
			if missing > 0 {
				return fmt.Errorf("%d input(s) missing", missing)
			}
			fmt.Fprintln(out, "  all inputs present")
			return nil
		},
	}
	o.register(cmd)
	cmd.Flags().BoolVar(&checkInputs, "check-inputs", false, "verify that input files and directories exist")
	return cmd
}
