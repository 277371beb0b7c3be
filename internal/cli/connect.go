package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	connectWeight float64
	connectBoth   bool
)

var connectCmd = &cobra.Command{
	Use:   "connect <source-id> <target-id>",
	Short: "Set the weight of a directed edge",
	Args:  cobra.ExactArgs(2),
	RunE:  runConnect,
}

func init() {
	connectCmd.Flags().Float64Var(&connectWeight, "weight", 0.5, "edge weight, clamped to [0, 2]")
	connectCmd.Flags().BoolVar(&connectBoth, "both", false, "also set the reverse edge")
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pairs := [][2]string{{args[0], args[1]}}
	if connectBoth {
		pairs = append(pairs, [2]string{args[1], args[0]})
	}

	for _, p := range pairs {
		ok, err := a.brain.Connect(cmd.Context(), p[0], p[1], connectWeight)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("cannot connect %s -> %s: unknown concept id or self-loop", p[0], p[1])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s %s\n", idStyle.Render(p[0]), idStyle.Render(p[1]), scoreStyle.Render(fmt.Sprintf("%.3f", connectWeight)))
	}
	return nil
}
