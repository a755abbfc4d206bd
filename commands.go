package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"keyword-agent/internal/app"
	"keyword-agent/internal/config"
	"keyword-agent/internal/render"
	"keyword-agent/pkg/export"
	"keyword-agent/pkg/logger"
	"keyword-agent/pkg/research"
)

type rootOptions struct {
	configFile string
	debug      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "keyword-agent",
		Short:         "Keyword research from Google Trends and Yandex Suggest",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file path (YAML)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newResearchCommand(opts),
		newRegionsCommand(opts),
	)
	return root
}

// loadConfig reads the config and installs the configured global logger.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.NewManager().Load(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Logger.Level = "debug"
	}
	logger.SetLogger(logger.New(cfg.Logger))
	return cfg, nil
}

type researchOptions struct {
	request  research.Request
	noEnrich bool
	workers  int
	outDir   string
	noExport bool
	asJSON   bool
}

func newResearchCommand(root *rootOptions) *cobra.Command {
	opts := &researchOptions{}
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Collect related queries and suggestions for a seed keyword",
		Example: `  keyword-agent research --keyword "жалюзи" --region Russia --months 6 --limit 10
  YANDEX_OAUTH_TOKEN=... keyword-agent research -k "blinds" -r "United States" -l English`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if opts.noEnrich {
				cfg.Research.Enrich = false
			}
			if opts.workers > 0 {
				cfg.Forecast.Workers = opts.workers
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runResearch(ctx, cmd, cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.request.Keyword, "keyword", "k", "", "seed keyword")
	f.StringVarP(&opts.request.Region, "region", "r", "", "region display name (default from config)")
	f.StringVarP(&opts.request.Language, "language", "l", "", "language display name (default from config)")
	f.IntVarP(&opts.request.Months, "months", "m", 0, "trailing window in months, 1-12 (default from config)")
	f.IntVarP(&opts.request.Limit, "limit", "n", 0, "maximum results per source (default from config)")
	f.BoolVar(&opts.noEnrich, "no-enrich", false, "skip Yandex forecast volume enrichment")
	f.IntVar(&opts.workers, "workers", 0, "parallel forecast calls (default from config)")
	f.StringVarP(&opts.outDir, "out", "o", ".", "directory for the xlsx files")
	f.BoolVar(&opts.noExport, "no-export", false, "do not write xlsx files")
	f.BoolVar(&opts.asJSON, "json", false, "print the report as JSON instead of tables")
	_ = cmd.MarkFlagRequired("keyword")

	return cmd
}

func runResearch(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts *researchOptions) error {
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Aggregator.Run(ctx, opts.request)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else if err := render.Report(out, report); err != nil {
		return err
	}

	if opts.noExport {
		return nil
	}
	paths, err := writeWorkbooks(opts.outDir, report)
	if err != nil {
		return err
	}
	if !opts.asJSON {
		for _, p := range paths {
			fmt.Fprintln(out, render.DimStyle.Render("saved "+p))
		}
	}
	return nil
}

func writeWorkbooks(dir string, report *research.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	trends, err := export.TrendsWorkbook(report.Trends.Items)
	if err != nil {
		return nil, err
	}
	suggestions, err := export.SuggestionsWorkbook(report.Suggestions.Items)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{export.TrendsFileName, trends},
		{export.SuggestionsFileName, suggestions},
	}
	paths := make([]string, 0, len(files))
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := os.WriteFile(path, file.data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func newRegionsCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the configured regions and languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := config.NewCatalog(cfg.Regions, cfg.Languages)
			if err != nil {
				return err
			}
			return render.Catalog(cmd.OutOrStdout(), catalog.Regions(), catalog.Languages())
		},
	}
}
