package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph size",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.brain.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return writeJSON(out, st)
	}
	fmt.Fprintln(out, titleStyle.Render("Graph"))
	fmt.Fprintf(out, "  concepts:    %d\n", st.Concepts)
	fmt.Fprintf(out, "  edges:       %d\n", st.Edges)
	fmt.Fprintf(out, "  mean weight: %.3f\n", st.MeanWeight)
	fmt.Fprintf(out, "  capacity:    %d %s\n", st.Capacity, dimStyle.Render(fmt.Sprintf("(next index %d)", st.NextIndex)))
	return nil
}
