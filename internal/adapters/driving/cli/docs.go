package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	docsJSON bool
	docsYes  bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage indexed documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runDocsList,
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>...",
	Short: "Remove documents and their evidence",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsDelete,
}

var docsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all indexed documents and evidence",
	RunE:  runDocsReset,
}

func init() {
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsDeleteCmd.Flags().BoolVarP(&docsYes, "yes", "y", false, "skip confirmation")
	docsResetCmd.Flags().BoolVarP(&docsYes, "yes", "y", false, "skip confirmation")
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsDeleteCmd)
	docsCmd.AddCommand(docsResetCmd)
	rootCmd.AddCommand(docsCmd)
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	docs, err := ingestService.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if docsJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}

	total := 0
	for _, d := range docs {
		total += d.ChunkCount
		title := d.Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("%s  %s\n", d.ID, title)
		if d.URI != "" {
			cmd.Printf("    %s\n", d.URI)
		}
		cmd.Printf("    %d %s, indexed %s\n", d.ChunkCount, plural(d.ChunkCount, "chunk"), d.CreatedAt.Format(time.DateTime))
	}
	cmd.Printf("\n%d %s, %d %s\n", len(docs), plural(len(docs), "document"), total, plural(total, "chunk"))
	return nil
}

func runDocsDelete(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if !docsYes && !confirm(cmd, fmt.Sprintf("Delete %d %s?", len(args), plural(len(args), "document"))) {
		cmd.Println("Aborted.")
		return nil
	}

	for _, id := range args {
		if err := ingestService.DeleteDocument(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
		cmd.Printf("Deleted %s\n", id)
	}
	return nil
}

func runDocsReset(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if !docsYes && !confirm(cmd, "Remove all indexed documents?") {
		cmd.Println("Aborted.")
		return nil
	}

	if err := ingestService.Reset(cmd.Context()); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}

// confirm asks a yes/no question on stdin; anything but y or yes is no.
func confirm(cmd *cobra.Command, question string) bool {
	cmd.Print(question + " [y/N]: ")
	answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
	return answer == "y" || answer == "yes"
}
