package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

var (
	researchTopK        int
	researchMaxRounds   int
	researchNoCitations bool
	researchJSON        bool
	researchTrace       bool
)

var researchCmd = &cobra.Command{
	Use:   "research [question]",
	Short: "Answer a question with iterative plan, retrieve, reason and review",
	Long: `Runs the full research pipeline:

  1. The planner splits the question into sub-tasks.
  2. The retriever fetches evidence for each sub-task.
  3. The reasoner drafts an answer with a confidence score.
  4. The reviewer checks the draft and may request another round.

The loop stops when the reviewer is satisfied or after --max-rounds rounds.
Stage failures degrade to simpler behaviour instead of aborting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().IntVarP(&researchTopK, "top-k", "k", 0, "evidence items per sub-task (0 = settings)")
	researchCmd.Flags().IntVarP(&researchMaxRounds, "max-rounds", "r", 0, "iteration cap (0 = settings)")
	researchCmd.Flags().BoolVar(&researchNoCitations, "no-citations", false, "do not ask for citations")
	researchCmd.Flags().BoolVar(&researchJSON, "json", false, "output the full result as JSON")
	researchCmd.Flags().BoolVar(&researchTrace, "trace", false, "print a per-round trace")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	if researchService == nil {
		return errors.New("research service not configured")
	}

	if reporter, ok := researchService.(driving.ProgressReporter); ok && !researchJSON {
		reporter.SetProgress(func(round int, state domain.SessionState) {
			if state != domain.StateDone {
				cmd.PrintErrf("  round %d: %s\n", round, strings.ToLower(string(state)))
			}
		})
		defer reporter.SetProgress(nil)
	}

	opts := domain.AnswerOptions{
		TopK:             researchTopK,
		MaxRounds:        researchMaxRounds,
		RequireCitations: !researchNoCitations,
	}
	result, err := researchService.AnswerQuestion(cmd.Context(), strings.Join(args, " "), opts)
	if err != nil {
		return fmt.Errorf("research failed: %w", err)
	}

	if researchJSON {
		return printJSON(cmd, result)
	}

	printVerdict(cmd, result)
	if researchTrace {
		printTrace(cmd, result.Trace)
	}
	return nil
}

func printVerdict(cmd *cobra.Command, result *domain.ResearchResult) {
	v := result.Verdict
	cmd.Println()
	if result.InsufficientEvidence {
		cmd.Println("No relevant evidence was found in the index.")
		cmd.Println("Index documents with 'sercha-research index <path>' and try again.")
		cmd.Println()
	}

	cmd.Printf("Answer (confidence %.2f, %d %s):\n", v.FinalConfidence, result.Rounds, plural(result.Rounds, "round"))
	cmd.Println(indent(v.FinalAnswer, "  "))
	cmd.Println()

	if len(v.Citations) > 0 {
		cmd.Printf("Citations: %s\n", strings.Join(v.Citations, ", "))
	}
	if len(v.Issues) > 0 {
		cmd.Println("Unresolved issues:")
		for _, issue := range v.Issues {
			cmd.Printf("  - %s\n", issue)
		}
	}
	if v.NeedIterate {
		cmd.Println("The reviewer still wanted another round; the round cap was reached.")
	}
}

func printTrace(cmd *cobra.Command, trace []domain.RoundTrace) {
	if len(trace) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Trace:")
	for _, rt := range trace {
		strategy := string(rt.Plan.Strategy)
		if rt.Plan.Fallback {
			strategy += ", fallback"
		}
		cmd.Printf("  Round %d (%s)\n", rt.Round, rt.Duration.Round(time.Millisecond))
		cmd.Printf("    Plan: %d %s (%s)\n", len(rt.Plan.SubTasks), plural(len(rt.Plan.SubTasks), "sub-task"), strategy)
		for _, task := range rt.Plan.SubTasks {
			cmd.Printf("      %d. %s\n", task.Priority, task.Text)
		}
		cmd.Printf("    Evidence: %d\n", rt.EvidenceCount)
		cmd.Printf("    Draft confidence: %.2f\n", rt.Draft.Confidence)
		cmd.Printf("    Needs another round: %t\n", rt.Verdict.NeedIterate)
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
