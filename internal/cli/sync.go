package cli

import (
	"fmt"

	"github.com/harun/recall/pkg/maintenance"
	"github.com/harun/recall/pkg/syncfile"
	"github.com/spf13/cobra"
)

var syncLink bool

var syncCmd = &cobra.Command{
	Use:   "sync [file]",
	Short: "Load concepts from an entries file",
	Long: `Load concepts from a JSON or YAML entries file. Concepts whose id is
already in the graph are left untouched. Without an argument the file from
sync.file in the configuration is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncLink, "link", false, "auto-link concepts by title overlap after syncing")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	path := a.cfg.Sync.File
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no entries file given and sync.file is not configured")
	}

	s := syncfile.NewSyncer(a.brain, a.log.Component("sync"))
	report, err := s.SyncFile(cmd.Context(), path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d added, %d already present\n", titleStyle.Render("Synced"), report.Added, report.Existing)

	if syncLink {
		audit := a.openAudit()
		defer audit.Close()
		res := maintenance.RunOnce(cmd.Context(), a.maintenanceOptions(audit), maintenance.JobAutoLink, maintenance.ActorCLI)
		if res.Err != nil {
			return res.Err
		}
		fmt.Fprintf(out, "%s %d pairs\n", titleStyle.Render("Linked"), res.Affected)
	}
	return nil
}
