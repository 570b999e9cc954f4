package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

var (
	askTopK int
	askJSON bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question in a single pass",
	Long: `Retrieves the most relevant evidence and answers directly, without
planning or review. Faster than 'research' but never iterates.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 5, "number of evidence items to retrieve")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if researchService == nil {
		return errors.New("research service not configured")
	}

	question := strings.Join(args, " ")
	answer, err := researchService.Ask(cmd.Context(), question, askTopK)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientEvidence) {
			return fmt.Errorf("%w: index documents with 'sercha-research index <path>'", err)
		}
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		return printJSON(cmd, answer)
	}

	cmd.Println("Answer:")
	cmd.Println(indent(answer.Answer, "  "))
	cmd.Println()
	printCitations(cmd, answer.Citations)
	return nil
}

func printCitations(cmd *cobra.Command, citations []domain.Citation) {
	if len(citations) == 0 {
		return
	}
	cmd.Println("Sources:")
	for _, c := range citations {
		cmd.Printf("  [%s] %s (%.2f)\n", c.Label, c.SourceID, c.Score)
		cmd.Printf("      %s\n", oneLine(c.Excerpt))
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// oneLine collapses whitespace so excerpts fit on a single line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
