package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/services"
)

var (
	deepTopK int
	deepJSON bool
)

var deepCmd = &cobra.Command{
	Use:   "deep [question]",
	Short: "Write a multi-angle analysis report",
	Long: `Retrieves a wider set of evidence and asks the model for a structured
report: core findings, key evidence, methodology, contributions, limitations,
future directions and applications.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDeep,
}

func init() {
	deepCmd.Flags().IntVarP(&deepTopK, "top-k", "k", 10, "number of evidence items to place in context")
	deepCmd.Flags().BoolVar(&deepJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(deepCmd)
}

func runDeep(cmd *cobra.Command, args []string) error {
	if researchService == nil {
		return errors.New("research service not configured")
	}

	result, err := researchService.DeepResearch(cmd.Context(), strings.Join(args, " "), deepTopK)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientEvidence) {
			return fmt.Errorf("%w: index documents with 'sercha-research index <path>'", err)
		}
		return fmt.Errorf("deep research failed: %w", err)
	}

	if deepJSON {
		return printJSON(cmd, result)
	}

	cmd.Println(result.Analysis)
	cmd.Println()
	cmd.Printf("Evidence used: %d\n", len(result.EvidenceUsed))
	printCitations(cmd, services.Citations(result.EvidenceUsed))
	return nil
}
