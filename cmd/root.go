package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/phylodyn/bdsim/sim"
)

var (
	// CLI flags shared by the run and ensemble subcommands
	seed       int64   // Seed controlling all randomness of a run
	maxCases   int     // Case budget: reaching it fails the run
	maxSamples int     // Sample target: reaching it ends the run with success
	r0         float64 // Basic reproduction number
	di         float64 // Mean duration of infection
	rho        float64 // Per-removal sampling probability
	logLevel   string  // Log verbosity level
	format     string  // Output tree format (newick or nhx)

	scenarioFile string // YAML file with preset scenarios
	scenarioName string // Scenario to select from the file

	replicates int // Ensemble replicate count
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "bdsim",
	Short: "Birth-death epidemic simulator with sampled-phylogeny extraction",
}

// setupLogging parses the --log flag and configures logrus
func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// buildConfig assembles the simulation Config from flags; an optional
// scenario preset replaces the whole Config, stopping bounds included
func buildConfig() sim.Config {
	cfg := sim.Config{R0: r0, DI: di, Rho: rho, MaxCases: maxCases, MaxSamples: maxSamples}

	if scenarioName != "" {
		if scenarioFile == "" {
			logrus.Fatalf("--scenario requires --scenario-file")
		}
		preset := GetScenarioConfig(scenarioFile, scenarioName)
		if preset == nil {
			logrus.Fatalf("Scenario %q not found in %s", scenarioName, scenarioFile)
		}
		cfg = *preset
	}
	return cfg
}

// runCmd executes a single simulation and prints the resulting tree
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and print the sampled phylogeny",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := buildConfig()

		logrus.Infof("Starting simulation with seed=%d, R0=%v, dI=%v, rho=%v, maxCases=%d, maxSamples=%d",
			seed, cfg.R0, cfg.DI, cfg.Rho, cfg.MaxCases, cfg.MaxSamples)

		s, err := sim.NewSimulator(cfg, sim.NewRNG(seed))
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		s.InitialiseSingleInfection()

		res, err := s.Run()
		res.Log()
		if err != nil {
			logrus.Warnf("Simulation failed: %v", err)
			fmt.Println("")
			return
		}

		roots := s.Tree.SubsampleTree()
		phylo := sim.BuildAncestralTree(roots[0])
		switch format {
		case "nhx":
			fmt.Println(sim.NHX(phylo, strconv.Itoa, strconv.Itoa))
		default:
			fmt.Println(sim.Newick(phylo, strconv.Itoa))
		}
	},
}

// ensembleCmd runs replicate simulations and prints summary statistics
var ensembleCmd = &cobra.Command{
	Use:   "ensemble",
	Short: "Run replicate simulations and summarize the sampled phylogenies",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()
		cfg := sim.EnsembleConfig{Sim: buildConfig(), Replicates: replicates, BaseSeed: seed}

		summary, reps, err := sim.RunEnsemble(cfg)
		if err != nil {
			logrus.Fatalf("Ensemble failed: %v", err)
		}

		outcomes := map[string]int{}
		for _, r := range reps {
			outcomes[r.Outcome]++
		}
		logrus.Infof("Ensemble %s: %d/%d successes (%d extinctions, %d budget failures)",
			summary.RunID, summary.Successes, summary.Replicates,
			outcomes[sim.OutcomeExtinction], outcomes[sim.OutcomeBudget])

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetTitle("ensemble %s (%d/%d successes)", summary.RunID, summary.Successes, summary.Replicates)
		t.AppendHeader(table.Row{"Metric", "Mean", "StdDev", "Median", "P90"})
		t.AppendRows([]table.Row{
			{"Leaves", fmtStat(summary.LeafMean), fmtStat(summary.LeafStdDev), fmtStat(summary.LeafMedian), fmtStat(summary.LeafP90)},
			{"Tree height", fmtStat(summary.HeightMean), fmtStat(summary.HeightStdDev), fmtStat(summary.HeightMedian), fmtStat(summary.HeightP90)},
		})
		t.Render()
	},
}

func fmtStat(x float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, ensembleCmd} {
		c.Flags().Int64Var(&seed, "seed", 42, "Seed controlling all randomness")
		c.Flags().IntVar(&maxCases, "max-cases", 100000000, "Fail the run once the cumulative case count exceeds this")
		c.Flags().IntVar(&maxSamples, "max-samples", 10, "End the run with success once this many lineages are sampled")
		c.Flags().Float64Var(&r0, "r0", 2.0, "Basic reproduction number")
		c.Flags().Float64Var(&di, "di", 1.0, "Mean duration of infection")
		c.Flags().Float64Var(&rho, "rho", 0.1, "Per-removal sampling probability")
		c.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().StringVar(&scenarioFile, "scenario-file", "", "YAML file with preset scenarios")
		c.Flags().StringVar(&scenarioName, "scenario", "", "Named scenario to load from the scenario file")
	}

	runCmd.Flags().StringVar(&format, "format", "newick", "Tree output format (newick, nhx)")
	ensembleCmd.Flags().IntVar(&replicates, "replicates", 100, "Number of replicate simulations")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(ensembleCmd)
}
