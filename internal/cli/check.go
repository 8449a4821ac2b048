package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/tokenforge/pkg/constraint"
	"github.com/matzehuels/tokenforge/pkg/errors"
	tfio "github.com/matzehuels/tokenforge/pkg/io"
	"github.com/matzehuels/tokenforge/pkg/report"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	config      string
	dir         string
	maxExamples int
}

// checkCommand creates the check command that audits generated metadata.
func (c *CLI) checkCommand() *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit trait rarity and forbidden pairs of a generated collection",
		Long: `Audit trait rarity and forbidden pairs of a generated collection.

Reads every metadata record, prints how often each trait value occurs and, when
the configuration is available, re-checks the forbidden pairs and compares the
observed shares with the configured rarity weights. Exits with status 1 if any
record contains a forbidden pair.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCheck(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.config, "config", "c", defaultConfigPath, "configuration file (optional)")
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "metadata directory (default: output.metadata_dir from the configuration)")
	cmd.Flags().IntVar(&opts.maxExamples, "max-examples", report.DefaultMaxExamples, "violations to list")

	return cmd
}

func (c *CLI) runCheck(ctx context.Context, opts checkOpts) error {
	logger := loggerFromContext(ctx)

	// The configuration only adds constraints and expected shares; the
	// audit still runs without it.
	cfg, err := loadConfig(opts.config, nil)
	if err != nil {
		logger.Warn("configuration unavailable, skipping constraint check", "error", errors.UserMessage(err))
		cfg = nil
	}

	dir := opts.dir
	if dir == "" {
		dir = defaultMetadataDir
		if cfg != nil {
			dir = cfg.Output.MetadataDir
		}
	}

	records, err := tfio.ImportDir(dir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "read metadata")
	}

	var pairs []constraint.ForbiddenPair
	if cfg != nil {
		pairs = cfg.ForbiddenPairs()
	}
	rep := report.Analyze(records, report.Options{
		Pairs:       pairs,
		MaxExamples: opts.maxExamples,
		Expected:    expectedShares(cfg, logger),
	})

	printReport(rep, dir)
	if !rep.OK() {
		return fmt.Errorf("%d tokens contain forbidden pairs", rep.Violations)
	}
	return nil
}

// =============================================================================
// Report Rendering
// =============================================================================

func printReport(rep *report.Report, dir string) {
	fmt.Fprintln(stdout, StyleTitle.Render("Rarity Check"))
	printKeyValue("Directory", dir)
	printCount("Tokens", int64(rep.Total))
	printNewline()

	for _, ts := range rep.Traits {
		fmt.Fprintln(stdout, StyleHighlight.Render(ts.TraitType))
		fmt.Fprintln(stdout, traitTable(ts))
		if f := ts.Fit; f != nil && f.DF > 0 {
			printDetail("chi-square %.2f, df %d, p = %.4f", f.ChiSquare, f.DF, f.PValue)
		}
		if f := ts.Fit; f != nil && len(f.Unexpected) > 0 {
			printWarning("values without a configured layer: %v", f.Unexpected)
		}
		printNewline()
	}

	if len(rep.LabelCollisions) > 0 {
		printInfo("%d attribute lists are shared by several tokens (distinct layer files)", len(rep.LabelCollisions))
		for _, col := range rep.LabelCollisions {
			printDetail("%v: %s", col.Editions, col.Label)
		}
		printNewline()
	}

	if !rep.ConstraintsChecked {
		printInfo("No forbidden pairs configured, constraint check skipped")
		return
	}
	if rep.OK() {
		printSuccess("No forbidden pairs found")
		return
	}
	printError("%d tokens contain forbidden pairs (showing up to %d)", rep.Violations, len(rep.Examples))
	for _, v := range rep.Examples {
		printDetail("#%d: %s", v.Edition, v.Pair)
	}
}

func traitTable(ts report.TraitStats) string {
	showExpected := ts.Fit != nil
	headers := []string{"Value", "Count", "Share"}
	if showExpected {
		headers = append(headers, "Expected")
	}

	rows := make([][]string, 0, len(ts.Values))
	for _, v := range ts.Values {
		row := []string{v.Value, fmt.Sprint(v.Count), fmt.Sprintf("%.2f%%", v.Share*100)}
		if showExpected {
			row = append(row, fmt.Sprintf("%.2f%%", v.Expected*100))
		}
		rows = append(rows, row)
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	numberStyle := cellStyle.Foreground(colorCyan).Align(lipgloss.Right)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})
	return t.String()
}

