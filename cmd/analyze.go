package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rulehound/rulehound/internal/agent"
	"github.com/rulehound/rulehound/internal/config"
	"github.com/rulehound/rulehound/internal/mcp"
	"github.com/rulehound/rulehound/internal/providers"
	"github.com/rulehound/rulehound/internal/report"
	"github.com/rulehound/rulehound/internal/rules"
	"github.com/rulehound/rulehound/internal/tools"
)

func analyzeCmd() *cobra.Command {
	var (
		dir       string
		out       string
		baseURL   string
		apiKey    string
		model     string
		format    string
		maxTokens int
		maxSteps  int
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a codebase and write its business rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(analyzeOptions{
				dir:       dir,
				out:       out,
				baseURL:   baseURL,
				apiKey:    apiKey,
				model:     model,
				format:    format,
				maxTokens: maxTokens,
				maxSteps:  maxSteps,
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory to analyze")
	cmd.Flags().StringVarP(&out, "out", "o", "business-rules.md", "output file path")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "OpenAI-compatible API base URL")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key (overrides config and RULEHOUND_API_KEY)")
	cmd.Flags().StringVar(&model, "model", "", "model name")
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, json, or yaml")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max tokens per model response")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "max model round-trips before giving up")
	return cmd
}

type analyzeOptions struct {
	dir       string
	out       string
	baseURL   string
	apiKey    string
	model     string
	format    string
	maxTokens int
	maxSteps  int
}

func runAnalyze(opts analyzeOptions) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if opts.baseURL != "" {
		cfg.Provider.APIBase = opts.baseURL
	}
	if opts.apiKey != "" {
		cfg.Provider.APIKey = opts.apiKey
	}
	if opts.model != "" {
		cfg.Provider.Model = opts.model
	}
	if opts.maxTokens != 0 {
		cfg.Provider.MaxTokens = opts.maxTokens
	}
	if opts.maxSteps != 0 {
		cfg.Agent.MaxSteps = opts.maxSteps
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("no API key: set RULEHOUND_API_KEY, provider.apiKey in the config, or --api-key")
	}

	outFormat, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	runID := uuid.NewString()
	log := slog.With("run", runID)
	log.Info("starting analysis", "dir", dir, "model", cfg.Provider.Model, "maxSteps", cfg.Agent.MaxSteps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := providers.NewOpenAIProvider("openai", cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Provider.Model)
	provider.SetMaxTokens(cfg.Provider.MaxTokens)

	reg := tools.NewRegistry()
	if cache, err := tools.NewResultCache(cfg.Tools.CacheSize); err == nil {
		reg.SetCache(cache)
	}
	reg.SetTruncator(tools.NewTruncator(cfg.Tools.MaxResultTokens))

	servers := cfg.Servers
	if len(servers) == 0 {
		servers = config.DefaultServers(dir)
	}
	manager := mcp.NewManager(servers, "rulehound", Version)
	if err := manager.Connect(ctx, reg); err != nil {
		return err
	}
	defer manager.Shutdown()

	log.Info("tools discovered", "count", reg.Count())
	for _, d := range reg.Diagnostics() {
		log.Warn("tool discovery", "detail", d)
	}

	loop, err := agent.NewLoop(agent.LoopConfig{
		Provider:  provider,
		Registry:  reg,
		MaxSteps:  cfg.Agent.MaxSteps,
		MaxTokens: cfg.Provider.MaxTokens,
	})
	if err != nil {
		return err
	}

	res, err := loop.Run(ctx, agent.SystemPrompt(), agent.UserPrompt(dir))
	if err != nil {
		return err
	}

	result := &rules.AnalysisResult{AnalysisDate: time.Now().UTC(), Rules: res.Rules}
	if err := report.Write(result, opts.out, outFormat); err != nil {
		return err
	}

	printSummary(result, res, opts.out)
	return nil
}

var (
	summaryTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	summaryWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	summaryFaint = lipgloss.NewStyle().Faint(true)
)

func printSummary(result *rules.AnalysisResult, run *agent.RunResult, out string) {
	sum := result.Summary()
	fmt.Println(summaryTitle.Render("Analysis complete"))
	fmt.Printf("  Rules: %d (%d high priority, %d user facing)\n", sum.Total, sum.HighPriority, sum.UserFacing)
	fmt.Printf("  Steps: %d\n", run.Steps)
	if run.State == agent.StateBudgetExhausted {
		fmt.Println(summaryWarn.Render("  Step budget exhausted; results may be partial"))
	}
	fmt.Println(summaryFaint.Render("  Written to " + out))
}
