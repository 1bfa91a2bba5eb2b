package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appevo "github.com/nickita-khylkouski/ultrathink/internal/application/evolution"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/logging"
	"github.com/nickita-khylkouski/ultrathink/internal/infrastructure/monitoring/prometheus"
)

// evolveOptions holds the evolve command flags.
type evolveOptions struct {
	generations int
	offspring   int
	topN        int
	seed        int64
}

func newEvolveCmd(opts *rootOptions) *cobra.Command {
	eo := &evolveOptions{}

	cmd := &cobra.Command{
		Use:   "evolve SEED_SMILES",
		Short: "Run a greedy evolution session from a seed molecule",
		Long: "Opens a lineage at the seed and runs the requested number of\n" +
			"generations, accepting the fittest candidate of each one.  With\n" +
			"an explicit --seed the whole session is reproducible.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := appevo.NewService(
				localEngineConfig(),
				prometheus.NewMetrics("ultrathink"),
				logging.NewNopLogger(),
			)
			ctx := cmd.Context()

			lin, err := svc.StartLineage(ctx, appevo.StartLineageRequest{SeedSMILES: args[0]})
			if err != nil {
				return err
			}
			rngSeed := eo.seed
			if rngSeed == 0 {
				rngSeed = time.Now().UnixNano()
			}

			for g := 0; g < eo.generations; g++ {
				gen, err := svc.RunGeneration(ctx, appevo.GenerationRequest{
					LineageID: lin.ID,
					Offspring: eo.offspring,
					TopN:      eo.topN,
					Seed:      rngSeed + int64(g),
				})
				if err != nil {
					return err
				}
				best := gen.Candidates[0]
				if opts.output != "json" {
					fmt.Printf("generation %d: %d candidates, best %.4f %s\n",
						gen.GenerationIndex, gen.TotalCandidates,
						best.Fitness.CompositeFitness, best.SMILES)
				}
				if _, err := svc.Accept(ctx, appevo.AcceptRequest{
					LineageID: lin.ID, SMILES: best.SMILES,
				}); err != nil {
					return err
				}
			}

			final, err := svc.GetLineage(ctx, lin.ID)
			if err != nil {
				return err
			}
			if opts.output == "json" {
				return printJSON(final)
			}
			fmt.Printf("\nseed      %s\nfinal     %s\nmutations %d\ndivergence %.2f%%\n",
				final.SeedSMILES, final.CurrentSMILES,
				final.MutationCount, final.DivergencePercent)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&eo.generations, "generations", "g", 5, "number of generations to run")
	f.IntVarP(&eo.offspring, "offspring", "k", 0, "offspring per generation (default from config)")
	f.IntVarP(&eo.topN, "top", "n", 0, "candidates to report per generation (default from config)")
	f.Int64VarP(&eo.seed, "seed", "s", 0, "random seed (0 picks a time-based seed)")
	return cmd
}
