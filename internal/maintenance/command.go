package maintenance

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/example/trading-services/internal/config"
	"github.com/example/trading-services/internal/domain"
)

// Options holds the maintenance command flags.
type Options struct {
	Verbose    bool
	Cleanup    bool
	DelayScale float64 `env:"MAINTENANCE_DELAY_SCALE" envDefault:"1"`
	Seed       int64
}

// NewCommand builds the maintenance CLI. newSystems lets tests swap the
// simulated clients; nil uses the simulator.
func NewCommand(newSystems func(Options) Systems) *cobra.Command {
	opts := &Options{}
	if newSystems == nil {
		newSystems = simulatedSystems
	}

	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run database, queue and object storage maintenance",
		Long: `Run the maintenance runbooks for the database, kafka and s3, in that order.

Without flags the forward runbooks run. With --cleanup the runner instead
cleans up after a previously interrupted run. The first failing step aborts
the remaining runbooks.

Example:
  maintenance --verbose
  maintenance --cleanup --delay-scale 0.1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("delay-scale") {
				return nil
			}
			return config.Load(opts)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.Seed == 0 {
				opts.Seed = time.Now().UnixNano()
			}
			r := Runner{Out: cmd.OutOrStdout(), Verbose: opts.Verbose}
			return r.Run(cmd.Context(), domain.ModeFor(opts.Cleanup), newSystems(*opts))
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVarP(&opts.Cleanup, "cleanup", "c", false, "run maintenance in cleanup mode")
	cmd.Flags().Float64Var(&opts.DelayScale, "delay-scale", 1, "multiplier applied to simulated latencies (env MAINTENANCE_DELAY_SCALE)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "seed for simulated failures (0 = time based)")

	return cmd
}

func simulatedSystems(opts Options) Systems {
	sim := NewSimulator(opts.DelayScale, opts.Seed)
	return Systems{
		Database:    SimDatabase{Sim: sim},
		Queue:       SimQueue{Sim: sim},
		ObjectStore: SimObjectStore{Sim: sim},
	}
}
