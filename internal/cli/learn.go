package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var learnStrength float64

var learnCmd = &cobra.Command{
	Use:   "learn <id> <id...>",
	Short: "Strengthen edges between concepts used together",
	Long: `Apply Hebbian reinforcement: every ordered pair of the given concepts has
its edge weight raised by --strength, up to 2.0. Unknown ids are skipped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLearn,
}

func init() {
	learnCmd.Flags().Float64Var(&learnStrength, "strength", 0, "weight increment (default from config)")
	rootCmd.AddCommand(learnCmd)
}

func runLearn(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	strength := a.cfg.Brain.HebbianStrength
	if cmd.Flags().Changed("strength") {
		strength = learnStrength
	}

	report, err := a.brain.HebbianLearn(cmd.Context(), args, strength)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d pairs", titleStyle.Render("Reinforced"), report.Pairs)
	if report.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " %s", dimStyle.Render(fmt.Sprintf("(%d unknown ids skipped)", report.Skipped)))
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
