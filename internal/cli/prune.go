package cli

import (
	"fmt"

	"github.com/harun/recall/pkg/maintenance"
	"github.com/spf13/cobra"
)

var (
	pruneDecay     float64
	pruneMinWeight float64
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Decay every edge and remove the weak ones",
	Long: `Multiply every edge weight by (1 - decay) and delete edges that fall
below the minimum weight.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().Float64Var(&pruneDecay, "decay", 0, "fraction of weight lost (default from config)")
	pruneCmd.Flags().Float64Var(&pruneMinWeight, "min-weight", 0, "edges below this weight are removed (default from config)")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	audit := a.openAudit()
	defer audit.Close()

	opts := a.maintenanceOptions(audit)
	if cmd.Flags().Changed("decay") {
		opts.PruneDecay = pruneDecay
	}
	if cmd.Flags().Changed("min-weight") {
		opts.PruneMinWeight = pruneMinWeight
	}

	res := maintenance.RunOnce(cmd.Context(), opts, maintenance.JobPrune, maintenance.ActorCLI)
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d edges\n", titleStyle.Render("Pruned"), res.Affected)
	return nil
}
