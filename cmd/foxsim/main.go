package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	seed    int64
	runs    int
	workers int
	keep    int
	horizon float64
	rabbits int
	foxes   int
	k1      float64
	k2      float64
	k3      float64
	k4      float64

	live      bool
	pngDir    string
	objective string
	runIndex  int
	outFile   string
	gridStep  float64
	species   string

	logger = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "foxsim",
		Short:         "stochastic rabbits and foxes simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			l, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".foxsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate one trajectory",
		Args:  cobra.NoArgs,
		RunE:  runSingle,
	}
	addStudyFlags(runCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "simulate many trajectories and summarise the second fox peak",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addStudyFlags(ensembleCmd)
	ensembleCmd.Flags().BoolVar(&live, "live", false, "show live progress")
	ensembleCmd.Flags().StringVar(&pngDir, "png", "", "write PNG charts to this directory")

	sweepCmd := &cobra.Command{
		Use:   "sweep [param] [values...]",
		Short: "run one ensemble per parameter value (k1-k4, horizon, rabbits, foxes)",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runSweep,
	}
	addStudyFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&objective, "objective", "foxes_extinct_fraction", "summary metric to minimise")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored studies",
		RunE:  listStudies,
	}

	reportCmd := &cobra.Command{
		Use:   "report [study_id]",
		Short: "recompute and show the statistics of a stored study",
		Args:  cobra.ExactArgs(1),
		RunE:  reportStudy,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [study_id]",
		Short: "plot a stored trajectory",
		Args:  cobra.ExactArgs(1),
		RunE:  plotStudy,
	}
	plotCmd.Flags().IntVar(&runIndex, "run", 0, "trajectory index")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [study_id]",
		Short: "export a stored study to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [study_id]",
		Short: "estimate the population cycle period of stored trajectories",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeStudy,
	}
	analyzeCmd.Flags().Float64Var(&gridStep, "dt", 1.0, "resampling step in days")
	analyzeCmd.Flags().StringVar(&species, "species", "foxes", "population to analyze (rabbits, foxes)")

	rerunCmd := &cobra.Command{
		Use:   "rerun [study_id]",
		Short: "repeat a stored study with its recorded configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  rerunStudy,
	}
	rerunCmd.Flags().Int64Var(&seed, "seed", 1, "override the seed of the first run")
	rerunCmd.Flags().IntVar(&runs, "runs", 1000, "override the number of trajectories")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and store every study listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, ensembleCmd, sweepCmd, listCmd, reportCmd, plotCmd, exportJSONCmd, analyzeCmd, rerunCmd, scenarioCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addStudyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Int64Var(&seed, "seed", 1, "seed of the first run")
	cmd.Flags().IntVar(&runs, "runs", 1000, "number of trajectories")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent trajectories (0 = one per CPU)")
	cmd.Flags().IntVar(&keep, "keep", 50, "trajectories kept for plotting")
	cmd.Flags().Float64Var(&horizon, "time", 600, "horizon in days")
	cmd.Flags().IntVar(&rabbits, "rabbits", 400, "initial rabbits")
	cmd.Flags().IntVar(&foxes, "foxes", 200, "initial foxes")
	cmd.Flags().Float64Var(&k1, "k1", 0.015, "rabbit birth rate")
	cmd.Flags().Float64Var(&k2, "k2", 0.00004, "rabbits eaten per fox")
	cmd.Flags().Float64Var(&k3, "k3", 0.0004, "fox births per rabbit eaten")
	cmd.Flags().Float64Var(&k4, "k4", 0.04, "fox death rate")
}
