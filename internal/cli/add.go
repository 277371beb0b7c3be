package cli

import (
	"fmt"
	"strings"

	"github.com/harun/recall/pkg/brain"
	"github.com/spf13/cobra"
)

var (
	addID     string
	addKind   string
	addDomain string
)

var addCmd = &cobra.Command{
	Use:   "add <title...>",
	Short: "Add a single concept",
	Long: `Add a concept to the graph. Without --id an id of the form <kind>_<random>
is generated. Adding an id that already exists is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addID, "id", "", "concept id (generated when empty)")
	addCmd.Flags().StringVar(&addKind, "kind", string(brain.KindWisdom), "concept kind ("+kindList()+")")
	addCmd.Flags().StringVar(&addDomain, "domain", "", "optional domain tag")
	rootCmd.AddCommand(addCmd)
}

func kindList() string {
	names := make([]string, 0, len(brain.Kinds))
	for _, k := range brain.Kinds {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func runAdd(cmd *cobra.Command, args []string) error {
	kind, err := brain.ParseKind(addKind)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.brain.AddConcept(cmd.Context(), addID, strings.Join(args, " "), kind, addDomain)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", idStyle.Render(c.ID), dimStyle.Render(fmt.Sprintf("(index %d)", c.Index)))
	return nil
}
