package cli

import (
	"fmt"
	"time"

	"github.com/harun/recall/pkg/maintenance"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link concepts whose titles share significant words",
	Long: `Create symmetric edges between concepts whose titles share words longer
than four letters. Pairs that are already connected are left alone. Runs in
time quadratic in the number of concepts.`,
	Args: cobra.NoArgs,
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	audit := a.openAudit()
	defer audit.Close()

	res := maintenance.RunOnce(cmd.Context(), a.maintenanceOptions(audit), maintenance.JobAutoLink, maintenance.ActorCLI)
	if res.Err != nil {
		return res.Err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d pairs in %s\n", titleStyle.Render("Linked"), res.Affected, res.Duration.Round(time.Millisecond))
	return nil
}
