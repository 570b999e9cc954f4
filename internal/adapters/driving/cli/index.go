package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-research/internal/connectors/filesystem"
	"github.com/custodia-labs/sercha-research/internal/core/domain"
	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
)

var (
	indexDocID  string
	indexText   string
	indexSource string
	indexWatch  bool
)

var indexCmd = &cobra.Command{
	Use:   "index [paths...]",
	Short: "Parse, chunk, embed and store documents",
	Long: `Indexes files or directories as evidence for research.

Directories are walked recursively; hidden entries and unsupported formats
are skipped. Re-indexing a file replaces its previous chunks.

Examples:
  sercha-research index paper.pdf
  sercha-research index ./papers ./notes
  sercha-research index --text "Raw evidence text" --source notes-1
  sercha-research index --watch ./papers`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexDocID, "id", "", "document ID for a single file (default: derived from path)")
	indexCmd.Flags().StringVar(&indexText, "text", "", "index raw text instead of files")
	indexCmd.Flags().StringVar(&indexSource, "source", "", "source ID for --text")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep watching a directory and re-index changes")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if indexText != "" {
		return runIndexText(cmd, args)
	}
	if len(args) == 0 {
		return errors.New("at least one path is required (or use --text)")
	}
	if indexWatch {
		return runIndexWatch(cmd, args)
	}

	paths, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		cmd.Println("No supported files found.")
		return nil
	}

	if len(paths) == 1 {
		summary, err := ingestService.IngestFile(cmd.Context(), paths[0], indexDocID)
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", paths[0], err)
		}
		cmd.Printf("Indexed %s as %s (%d chunks)\n", paths[0], summary.DocumentID, summary.ChunksIndexed)
		return nil
	}
	if indexDocID != "" {
		return errors.New("--id can only be used with a single file")
	}

	cmd.Printf("Indexing %d files...\n", len(paths))
	report, err := ingestService.IngestBatch(cmd.Context(), paths)
	if err != nil {
		return fmt.Errorf("batch indexing failed: %w", err)
	}
	return printBatchReport(cmd, report)
}

func runIndexText(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return errors.New("--text cannot be combined with paths")
	}
	if indexSource == "" {
		return errors.New("--source is required with --text")
	}

	summary, err := ingestService.ProcessDocument(cmd.Context(), indexText, indexSource)
	if err != nil {
		return fmt.Errorf("failed to index text: %w", err)
	}
	cmd.Printf("Indexed %s (%d chunks)\n", summary.DocumentID, summary.ChunksIndexed)
	return nil
}

func runIndexWatch(cmd *cobra.Command, args []string) error {
	if watcher == nil {
		return errors.New("watcher not configured")
	}
	if len(args) != 1 {
		return errors.New("--watch takes exactly one directory")
	}

	dir := filesystem.ResolvePath(args[0])
	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", dir)
	return watcher.Watch(cmd.Context(), dir, func(ev driving.WatchEvent) {
		if ev.Err != nil {
			cmd.PrintErrf("  %s %s: %v\n", ev.Change, ev.Path, ev.Err)
			return
		}
		if ev.Change == domain.ChangeDeleted {
			cmd.Printf("  %s %s -> %s removed\n", ev.Change, ev.Path, ev.Summary.DocumentID)
			return
		}
		cmd.Printf("  %s %s -> %s (%d chunks)\n", ev.Change, ev.Path, ev.Summary.DocumentID, ev.Summary.ChunksIndexed)
	})
}

func printBatchReport(cmd *cobra.Command, report *driving.BatchReport) error {
	for _, s := range report.Succeeded {
		cmd.Printf("  ok   %s (%d chunks)\n", s.DocumentID, s.ChunksIndexed)
	}

	failed := make([]string, 0, len(report.Failed))
	for path := range report.Failed {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		cmd.Printf("  fail %s after %d %s: %v\n",
			path, report.Attempts[path], plural(report.Attempts[path], "attempt"), report.Failed[path])
	}

	cmd.Printf("\nIndexed %d, failed %d\n", len(report.Succeeded), len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed to index", len(failed), len(failed)+len(report.Succeeded))
	}
	return nil
}

// collectFiles expands directories into the supported files beneath them.
func collectFiles(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, arg := range args {
		root := filesystem.ResolvePath(arg)
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, arg, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && filesystem.IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !supported(path) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
		}
	}
	return paths, nil
}

func supported(path string) bool {
	if mimeDetector == nil {
		return true
	}
	return mimeDetector.DetectMIMEType(path) != ""
}
