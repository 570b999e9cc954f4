package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-research/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, research limits and other options.

Use subcommands to configure specific settings or run the interactive wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the LLM and embedding providers.`,
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used for indexing and retrieval.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used for planning, reasoning and review.`,
	RunE:  runSettingsLLM,
}

var settingsResearchCmd = &cobra.Command{
	Use:   "research",
	Short: "Set research limits and review thresholds",
	Long: `Update orchestration and review settings. Only the flags given are changed.

Examples:
  sercha-research settings research --max-rounds 5
  sercha-research settings research --top-k 8 --min-confidence 0.7`,
	RunE: runSettingsResearch,
}

func init() {
	flags := settingsResearchCmd.Flags()
	flags.Int("max-rounds", 0, "iteration cap")
	flags.Int("top-k", 0, "evidence items per sub-task")
	flags.Int("deep-top-k", 0, "evidence items for deep research")
	flags.Int("parallelism", 0, "concurrent sub-task searches")
	flags.Bool("citations", true, "ask for citations by default")
	flags.Float64("min-confidence", 0, "minimum acceptable answer confidence")
	flags.Int("min-evidence", 0, "minimum evidence count before review passes")
	flags.Int("min-answer-length", 0, "minimum answer length in characters")
	flags.StringSlice("hedge-words", nil, "words flagged as hedging")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsResearchCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// LLM settings
	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	for _, role := range []domain.LLMRole{domain.RolePlanner, domain.RoleReasoner, domain.RoleReviewer} {
		if m := settings.LLM.ModelFor(role); m != settings.LLM.Model {
			cmd.Printf("  %s model: %s\n", capitalise(string(role)), m)
		}
	}
	printEndpoint(cmd, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	// Embedding settings
	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	if settings.Embedding.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", settings.Embedding.Dimensions)
	}
	cmd.Printf("  Query cache: %d\n", settings.Embedding.CacheSize)
	printEndpoint(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Status: %s\n", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	r := settings.Research
	cmd.Println("[Research]")
	cmd.Printf("  Max rounds: %d\n", r.MaxRounds)
	cmd.Printf("  Top K: %d (deep: %d)\n", r.TopK, r.DeepTopK)
	cmd.Printf("  Parallelism: %d\n", r.Parallelism)
	cmd.Printf("  Citations: %t\n", r.RequireCitations)
	cmd.Println()

	cmd.Println("[Review]")
	cmd.Printf("  Min confidence: %.2f\n", r.Review.MinConfidence)
	cmd.Printf("  Min evidence: %d\n", r.Review.MinEvidence)
	cmd.Printf("  Min answer length: %d\n", r.Review.MinAnswerLength)
	cmd.Printf("  Hedge words: %s\n", strings.Join(r.Review.HedgeWords, ", "))
	cmd.Println()

	cmd.Println("[Retry]")
	cmd.Printf("  Max attempts: %d\n", settings.Retry.MaxAttempts)
	cmd.Printf("  Backoff: %s to %s\n", settings.Retry.InitialBackoff, settings.Retry.MaxBackoff)
	cmd.Printf("  Timeout: %s\n", settings.Retry.Timeout)
	if settings.Retry.RequestsPerSecond > 0 {
		cmd.Printf("  Rate limit: %.1f/s\n", settings.Retry.RequestsPerSecond)
	}
	cmd.Println()

	cmd.Println("[Ingest]")
	cmd.Printf("  Chunk size: %d\n", settings.Ingest.ChunkSize)
	cmd.Printf("  Workers: %d\n", settings.Ingest.Workers)
	cmd.Printf("  Max attempts: %d\n", settings.Ingest.MaxAttempts)
	cmd.Println()

	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", settings.Storage)
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-research settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printEndpoint(cmd *cobra.Command, provider domain.AIProvider, baseURL, apiKey string) {
	if baseURL != "" || provider.IsLocal() {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	cmd.Println("Sercha Research Settings Wizard")
	cmd.Println("===============================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Step 1: Configure LLM Provider")
	cmd.Println("------------------------------")
	cmd.Println("The LLM plans sub-queries, drafts answers and reviews them.")
	cmd.Println()
	if err := configureLLMProvider(cmd, reader); err != nil {
		return err
	}

	cmd.Println("Step 2: Configure Embedding Provider")
	cmd.Println("------------------------------------")
	cmd.Println("Embeddings are used to index documents and retrieve evidence.")
	cmd.Println()
	if err := configureEmbeddingProvider(cmd, reader); err != nil {
		return err
	}

	// Final validation
	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}

	return nil
}

func runSettingsResearch(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	r := settings.Research
	flags := cmd.Flags()

	if flags.Changed("max-rounds") {
		r.MaxRounds, _ = flags.GetInt("max-rounds")
	}
	if flags.Changed("top-k") {
		r.TopK, _ = flags.GetInt("top-k")
	}
	if flags.Changed("deep-top-k") {
		r.DeepTopK, _ = flags.GetInt("deep-top-k")
	}
	if flags.Changed("parallelism") {
		r.Parallelism, _ = flags.GetInt("parallelism")
	}
	if flags.Changed("citations") {
		r.RequireCitations, _ = flags.GetBool("citations")
	}
	if flags.Changed("min-confidence") {
		r.Review.MinConfidence, _ = flags.GetFloat64("min-confidence")
	}
	if flags.Changed("min-evidence") {
		r.Review.MinEvidence, _ = flags.GetInt("min-evidence")
	}
	if flags.Changed("min-answer-length") {
		r.Review.MinAnswerLength, _ = flags.GetInt("min-answer-length")
	}
	if flags.Changed("hedge-words") {
		r.Review.HedgeWords, _ = flags.GetStringSlice("hedge-words")
	}

	if err := settingsService.SetResearch(r); err != nil {
		return fmt.Errorf("failed to update research settings: %w", err)
	}
	cmd.Printf("Research settings saved: max rounds %d, top k %d, min confidence %.2f\n",
		r.MaxRounds, r.TopK, r.Review.MinConfidence)
	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	return configureLLMProvider(cmd, reader)
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllLLMProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(cmd, reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(cmd *cobra.Command, reader *bufio.Reader) string {
	// Read without echo only when input is the terminal itself.
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
