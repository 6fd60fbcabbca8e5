package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/everstacklabs/pricehub/internal/config"
	"github.com/everstacklabs/pricehub/internal/diff"
	"github.com/everstacklabs/pricehub/internal/export"
	"github.com/everstacklabs/pricehub/internal/model"
	"github.com/everstacklabs/pricehub/internal/pipeline"
	"github.com/everstacklabs/pricehub/internal/server"
	"github.com/everstacklabs/pricehub/internal/validate"
)

var (
	cfgFile string
	asJSON  bool
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:           "pricehub",
		Short:         "Aggregated LLM price catalog",
		Long:          "Collects model prices from reseller and vendor sources, merges listings of the same model, and serves or exports the catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		serveCmd(),
		modelsCmd(),
		brandsCmd(),
		providersCmd(),
		sourcesCmd(),
		discoverCmd(),
		diffCmd(),
		syncCmd(),
		validateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitError carries a specific process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

// withApp loads config, builds the app and runs fn with it.
func withApp(cmd *cobra.Command, threshold float64, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if threshold < 0 {
		threshold = cfg.SimilarityThreshold
	}
	a, err := newApp(cmd.Context(), cfg, threshold)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func printJSON(v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, -1, func(a *app) error {
				addr, _ := cmd.Flags().GetString("addr")
				if addr == "" {
					addr = a.cfg.Server.Addr
				}
				srv := server.New(a.service,
					server.WithGinMode(a.cfg.Server.GinMode),
					server.WithMetricsHandler(a.metrics.Handler()))
				return srv.Run(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (default: server.addr from config)")
	return cmd
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List catalog models",
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			noMerge, _ := cmd.Flags().GetBool("no-merge")
			explain, _ := cmd.Flags().GetBool("explain")
			brand, _ := cmd.Flags().GetString("brand")

			return withApp(cmd, threshold, func(a *app) error {
				ctx := cmd.Context()
				if explain {
					groups, err := a.service.Explain(ctx)
					if err != nil {
						return err
					}
					if asJSON {
						return printJSON(groups)
					}
					for _, g := range groups {
						fmt.Printf("%s\n", g.Name)
						for _, m := range g.Members {
							fmt.Printf("    %s\n", m)
						}
					}
					return nil
				}

				var (
					models []model.CanonicalModel
					err    error
				)
				if brand != "" {
					models, err = a.service.ListModelsByBrand(ctx, brand)
				} else {
					models, err = a.service.ListModels(ctx, !noMerge)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(models)
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tBRAND\tCONTEXT\tOFFERS\tRECOMMENDED")
				for _, m := range models {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", m.Name, m.Brand, m.ContextWindow, len(m.Providers), m.RecommendedProvider)
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Printf("\nTotal: %d models\n", len(models))
				return nil
			})
		},
	}
	cmd.Flags().Bool("no-merge", false, "list every source record separately")
	cmd.Flags().Float64("threshold", -1, "similarity threshold percentage (default: from config)")
	cmd.Flags().Bool("explain", false, "show which source records each model was merged from")
	cmd.Flags().String("brand", "", "only list models of this brand")
	return cmd
}

func brandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brands",
		Short: "List model brands",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, -1, func(a *app) error {
				brands, err := a.service.ListBrands(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(brands)
				}
				fmt.Println(strings.Join(brands, "\n"))
				return nil
			})
		},
	}
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers <model>",
		Short: "Show every offer for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, -1, func(a *app) error {
				offers, err := a.service.GetProvidersForModel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(offers)
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SOURCE\tLABEL\tINPUT\tOUTPUT\tCURRENCY")
				for _, o := range offers {
					fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%s\n", o.ProviderID, o.DisplayLabel, o.InputPrice, o.OutputPrice, o.Currency)
				}
				return w.Flush()
			})
		},
	}
}

func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List configured pricing sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, -1, func(a *app) error {
				sources := a.service.ListSources()
				if asJSON {
					return printJSON(sources)
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCURRENCY\tENABLED\tWEBSITE")
				for _, s := range sources {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.DisplayName, s.DefaultCurrency, s.Enabled, s.Website)
				}
				return w.Flush()
			})
		},
	}
}

func discoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Fetch one source and print its normalized records",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			return withApp(cmd, -1, func(a *app) error {
				models, err := a.service.ModelsBySource(cmd.Context(), source)
				if err != nil {
					return err
				}
				if report := a.service.Report(); report != nil {
					for _, s := range report.Sources {
						if s.SourceID == source && s.Error != "" {
							return fmt.Errorf("source %s failed: %s", source, s.Error)
						}
					}
				}
				if asJSON {
					return printJSON(models)
				}
				for _, m := range models {
					offer := m.Providers[0]
					fmt.Printf("%-40s %-16s %10g %10g %s\n", m.Name, m.Brand, offer.InputPrice, offer.OutputPrice, offer.Currency)
				}
				fmt.Printf("\nTotal: %d models\n", len(models))
				return nil
			})
		},
	}
	cmd.Flags().String("source", "", "source id to fetch")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show what a sync would change (no writes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, -1, func(a *app) error {
				plan, err := pipeline.New(a.cfg, a.service).Diff(cmd.Context())
				if err != nil {
					return pipelineError(err)
				}
				fmt.Println(diff.RenderDiffSummary(plan.ChangeSet))
				for _, name := range plan.Retained {
					fmt.Printf("= %s (kept, source unhealthy)\n", name)
				}
				if plan.ChangeSet.HasChanges() {
					return &exitError{code: pipeline.ExitChanges, err: errors.New("changes detected")}
				}
				return nil
			})
		},
	}
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Full pipeline: refresh, diff, validate, write, PR",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, -1, func(a *app) error {
				if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
					a.cfg.DryRun = true
				}

				res, err := pipeline.New(a.cfg, a.service).Sync(cmd.Context())
				if err != nil {
					if res != nil && res.Validation != nil && res.Validation.HasErrors() {
						return &exitError{code: pipeline.ExitPolicyBlock, err: err}
					}
					return pipelineError(err)
				}

				fmt.Println(diff.RenderDiffSummary(res.Plan.ChangeSet))
				if res.Validation != nil && len(res.Validation.Issues) > 0 {
					fmt.Println(validate.FormatResult(res.Validation))
				}
				switch {
				case res.Skipped && res.SkipReason == "no changes":
					slog.Info("sync skipped", "reason", res.SkipReason)
				case res.Skipped:
					return &exitError{code: pipeline.ExitPolicyBlock, err: fmt.Errorf("sync blocked: %s", res.SkipReason)}
				case a.cfg.DryRun:
					slog.Info("dry run complete", "draft", res.PRDraft)
				case res.PRNumber > 0:
					slog.Info("PR created", "pr", res.PRNumber, "draft", res.PRDraft, "version", res.Version)
				default:
					slog.Info("sync complete", "version", res.Version)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("dry-run", false, "show what would change without writing")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the exported catalog (CI check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			exportPath, _ := cmd.Flags().GetString("export-path")
			if exportPath == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				exportPath = cfg.ExportPath
			}

			cat, err := export.Load(exportPath)
			if err != nil {
				return fmt.Errorf("loading export: %w", err)
			}

			result := validate.ValidateExport(cat)
			fmt.Println(validate.FormatResult(result))
			if result.HasErrors() {
				return &exitError{code: 1, err: errors.New("export has validation errors")}
			}
			return nil
		},
	}
	cmd.Flags().String("export-path", "", "path to the exported catalog (default: from config)")
	return cmd
}

func pipelineError(err error) error {
	if errors.Is(err, pipeline.ErrNoHealthySources) {
		return &exitError{code: pipeline.ExitSourceHealth, err: err}
	}
	return err
}
