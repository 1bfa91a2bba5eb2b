package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nickita-khylkouski/ultrathink/internal/application/discovery"
	"github.com/nickita-khylkouski/ultrathink/internal/config"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
)

// localEngineConfig returns the default engine tunables for offline runs.
func localEngineConfig() config.EngineConfig {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg.Engine
}

// localDiscoveryService builds a discovery service with no external
// infrastructure, for offline CLI runs.
func localDiscoveryService() *discovery.Service {
	return discovery.NewService(
		localEngineConfig(),
		prometheus.NewMetrics("ultrathink"),
		logging.NewNopLogger(),
	)
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score SMILES...",
		Short: "Score one or more molecules",
		Long: "Parses each structure, computes descriptors and the composite\n" +
			"fitness report, and prints the results.  Invalid structures are\n" +
			"reported per item without failing the batch.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := localDiscoveryService()
			resp, err := svc.ScoreBatch(cmd.Context(), discovery.ScoreRequest{SMILES: args})
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(resp)
			}
			printScoreTable(resp)
			return nil
		},
	}
	return cmd
}

func printScoreTable(resp *discovery.ScoreResponse) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INPUT\tCANONICAL\tMW\tLOGP\tPSA\tFITNESS\tTOXIC\tERROR")
	for _, item := range resp.Results {
		if item.Error != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t-\t%s: %s\n",
				item.SMILES, item.Error.Code, item.Error.Message)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%.3f\t%.2f\t%.2f\t%.4f\t%v\t-\n",
			item.SMILES, item.CanonicalSMILES,
			item.Descriptors.MolecularWeight, item.Descriptors.LogP,
			item.Descriptors.PolarSurfaceArea,
			item.Fitness.CompositeFitness, item.Fitness.ToxicityFlag)
	}
	w.Flush()
	fmt.Printf("\nscored %d, failed %d (profile %s)\n",
		resp.Scored, resp.Failed, resp.ProfileVersion)
}

func newTargetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the built-in indication seed libraries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targets := discovery.Targets()
			if opts.output == "json" {
				return printJSON(targets)
			}
			for _, t := range targets {
				fmt.Printf("%s: %s\n", t.Name, t.Description)
				for _, seed := range t.Seeds {
					fmt.Printf("  %s\n", seed)
				}
			}
			return nil
		},
	}
}
