package main

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"accentid/internal/accent"
	"accentid/internal/api"
	"accentid/internal/pipeline"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var showDistribution bool

	cmd := &cobra.Command{
		Use:   "analyze <url>",
		Short: "Download a video and classify the speaker's accent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Analyzer.AnalyzeURL(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", pipeline.ErrorKind(err), err)
			}

			if jsonOutput {
				return writeJSON(cmd, api.FromResult(result, showDistribution))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accent:     %s\n", result.Accent)
			fmt.Fprintf(out, "Confidence: %.1f%%\n", result.Confidence)
			fmt.Fprintln(out, result.Summary)
			if showDistribution {
				fmt.Fprintln(out)
				fmt.Fprint(out, distributionTable(result))
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&showDistribution, "distribution", false, "Include the probability of every label")
	return cmd
}

// distributionTable renders every label's probability, most likely first.
func distributionTable(result accent.Result) string {
	scores := result.Distribution()
	rows := make([][]string, 0, len(scores))
	for _, score := range sortedScores(scores) {
		marker := ""
		if score.Label == result.Label {
			marker = "*"
		}
		rows = append(rows, []string{
			strings.TrimSpace(score.Label.Display()),
			fmt.Sprintf("%.1f%%", accent.RoundConfidence(score.Probability)),
			marker,
		})
	}
	return renderTable([]string{"Accent", "Confidence", ""}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
}

func sortedScores(scores accent.Distribution) accent.Distribution {
	out := slices.Clone(scores)
	slices.SortStableFunc(out, func(a, b accent.Score) int {
		return cmp.Compare(b.Probability, a.Probability)
	})
	return out
}
