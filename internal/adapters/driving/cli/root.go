// Package cli provides the cobra command tree for sercha-research.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-research/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-research/internal/logger"
)

// skipInit marks commands that run without building services.
const skipInit = "skip-init"

// version is set at build time via SetVersion.
var version = "dev"

// MIMEDetector maps a path to a supported MIME type, or "" if unsupported.
type MIMEDetector interface {
	DetectMIMEType(path string) string
}

// Services holds the driving ports the commands run against.
type Services struct {
	Research driving.ResearchService
	Ingest   driving.IngestService
	Settings driving.SettingsService
	Watcher  driving.Watcher
	Detector MIMEDetector

	// Close releases stores and provider connections. Optional.
	Close func() error
}

// Options are the global flags handed to the Initializer.
type Options struct {
	Verbose bool
	Profile string
}

// Initializer builds services once global flags are parsed.
type Initializer func(ctx context.Context, opts Options) (*Services, error)

var (
	researchService driving.ResearchService
	ingestService   driving.IngestService
	settingsService driving.SettingsService
	watcher         driving.Watcher
	mimeDetector    MIMEDetector
	closeServices   func() error

	initializer Initializer
	globalOpts  Options
)

var rootCmd = &cobra.Command{
	Use:   "sercha-research",
	Short: "Iterative question answering over your local documents",
	Long: `sercha-research indexes local documents and answers questions about them.

Questions go through a plan, retrieve, reason and review loop that repeats
until the reviewer accepts the answer or the round cap is reached.

Get started:
  sercha-research settings llm
  sercha-research settings embedding
  sercha-research index ./papers
  sercha-research research "What limits transformer context length?"`,
	SilenceUsage:      true,
	PersistentPreRunE: runInit,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "show debug output")
	rootCmd.PersistentFlags().StringVar(&globalOpts.Profile, "profile", "", "YAML research profile layered over config.toml")
}

// runInit applies global flags and builds services on first use.
func runInit(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)

	if initializer == nil || cmd.Annotations[skipInit] != "" {
		return nil
	}
	svc, err := initializer(cmd.Context(), globalOpts)
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

// SetVersion sets the version reported by 'version'.
func SetVersion(v string) {
	version = v
}

// SetInitializer registers the function that builds services.
func SetInitializer(fn Initializer) {
	initializer = fn
}

// SetServices installs services directly (used by tests and embedders).
func SetServices(svc *Services) {
	if svc == nil {
		svc = &Services{}
	}
	researchService = svc.Research
	ingestService = svc.Ingest
	settingsService = svc.Settings
	watcher = svc.Watcher
	mimeDetector = svc.Detector
	closeServices = svc.Close
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("close: %v", cerr)
		}
		closeServices = nil
	}
	return err
}
