package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/harun/recall/pkg/brain"
	"github.com/harun/recall/pkg/syncfile"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

var (
	queryDepth     int
	queryDecay     float64
	queryThreshold float64
	queryLimit     int
	querySeeds     []string
	queryNoLearn   bool
	queryJSON      bool
)

// titleWidth bounds titles in the text listing.
const titleWidth = 60

var queryCmd = &cobra.Command{
	Use:   "query <prompt...>",
	Short: "Recall concepts relevant to a prompt",
	Long: `Find seed concepts whose titles match words of the prompt, spread
activation through the graph and list what lit up. Strongly co-activated
concepts with no edge between them are reported as gaps. Unless --no-learn is
given, the activated concepts are reinforced together.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.IntVar(&queryDepth, "depth", 0, "propagation hops (default from config)")
	f.Float64Var(&queryDecay, "decay", 0, "per-hop decay (default from config)")
	f.Float64Var(&queryThreshold, "threshold", 0, "minimum score (default from config)")
	f.IntVar(&queryLimit, "limit", 0, "maximum results (default from config)")
	f.StringSliceVar(&querySeeds, "seed", nil, "extra seed concept ids")
	f.BoolVar(&queryNoLearn, "no-learn", false, "do not reinforce the activated concepts")
	f.BoolVar(&queryJSON, "json", false, "print JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if path := a.cfg.Sync.File; path != "" {
		s := syncfile.NewSyncer(a.brain, a.log.Component("sync"))
		if err := s.LoadContent(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn().Err(err).Str("file", path).Msg("Content unavailable")
		}
	}

	opts := brain.RecallOptions{
		Spread:     a.spreadOptions(),
		SeedLimit:  a.cfg.Brain.SeedLimit,
		ExtraSeeds: querySeeds,
		Learn:      !queryNoLearn,
		Strength:   a.cfg.Brain.HebbianStrength,
	}
	flags := cmd.Flags()
	if flags.Changed("depth") {
		opts.Spread.Depth = queryDepth
	}
	if flags.Changed("decay") {
		opts.Spread.Decay = queryDecay
	}
	if flags.Changed("threshold") {
		opts.Spread.Threshold = queryThreshold
	}
	if flags.Changed("limit") {
		opts.Spread.Limit = queryLimit
	}

	rec, err := a.brain.Recall(cmd.Context(), strings.Join(args, " "), opts)
	if err != nil {
		return err
	}

	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), rec)
	}
	printRecollection(cmd.OutOrStdout(), rec)
	return nil
}

func printRecollection(w io.Writer, rec *brain.Recollection) {
	if len(rec.Seeds) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No concepts match the prompt."))
		return
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("Seeds:"), strings.Join(rec.Seeds, ", "))

	if len(rec.Memories) == 0 {
		fmt.Fprintln(w, dimStyle.Render("Nothing activated."))
		return
	}

	fmt.Fprintln(w, titleStyle.Render("Activated:"))
	for _, m := range rec.Memories {
		marker := " "
		if m.Unexpected {
			marker = surpriseStyle.Render("*")
		}
		fmt.Fprintf(w, "%s %s  %s %s %s\n",
			marker,
			scoreStyle.Render(fmt.Sprintf("%6.3f", m.Score)),
			idStyle.Render(m.Concept.ID),
			kindStyle.Render("["+string(m.Concept.Kind)+"]"),
			runewidth.Truncate(m.Concept.Title, titleWidth, "..."),
		)
		if m.Content != "" {
			first, _, _ := strings.Cut(m.Content, "\n")
			fmt.Fprintf(w, "           %s\n", dimStyle.Render(runewidth.Truncate(first, titleWidth, "...")))
		}
	}

	if len(rec.Gaps) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Gaps:"))
		for _, g := range rec.Gaps {
			fmt.Fprintf(w, "  %s <-> %s  %s\n", idStyle.Render(g.A), idStyle.Render(g.B), scoreStyle.Render(fmt.Sprintf("%.3f", g.Score)))
		}
	}

	if len(rec.Paths) > 0 {
		fmt.Fprintln(w, titleStyle.Render("Paths:"))
		for _, p := range rec.Paths {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render(strings.Join(p, " -> ")))
		}
	}
}
