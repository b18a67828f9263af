package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spektr-org/grantlens/config"
	"github.com/spektr-org/grantlens/dataset"
	"github.com/spektr-org/grantlens/engine"
	"github.com/spektr-org/grantlens/pages"
	"github.com/spektr-org/grantlens/render"
	"github.com/spektr-org/grantlens/schema"
	"github.com/spektr-org/grantlens/server"
	"github.com/spektr-org/grantlens/tagger"
)

// ============================================================================
// GRANTLENS CLI — Explore research-funding open data
// ============================================================================

const version = "0.1.0"

var (
	// Global flags
	configPath string
	dataDir    string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "grantlens",
	Short: "grantlens - explore research grant open data",
	Long: `grantlens loads the grant, person, institute, discipline and keyword
tables of a research-funding open-data export and computes the explorer pages:
overview, funding trends, research topics, diversity, collaboration and AI
insights.

Data comes from a directory of CSV files, an S3 bucket, or a SQL database
(sqlite or PostgreSQL). Use --data sample to try the built-in sample.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if dataDir == config.DriverSample {
			cfg.Data.Driver = config.DriverSample
		} else if dataDir != "" {
			cfg.Data.Driver = config.DriverDir
			cfg.Data.Dir = dataDir
		}

		zc := zap.NewProductionConfig()
		if verbose || strings.EqualFold(cfg.Log.Level, "debug") {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		} else if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
			zc.Level = zap.NewAtomicLevelAt(lvl)
		}
		if logger, err = zc.Build(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the explorer pages over HTTP",
	Long: `Loads the dataset once and serves every page as JSON, each panel as PNG
or CSV, the collaboration network image, Prometheus metrics and a health check.

Routes:
  GET /api/v1/pages
  GET /api/v1/pages/{page}?key=value...
  GET /api/v1/pages/{page}/panels/{n}.png|csv
  GET /assets/network.png
  GET /metrics
  GET /healthz`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var pageCmd = &cobra.Command{
	Use:   "page <name>",
	Short: "Compute one page and print it",
	Long: `Computes a page with the given widget selections.

Pages: overview, trends, topics, diversity, collaboration, ai

Examples:
  grantlens page trends --set year=2015,2020 --set discipline=Biology
  grantlens page topics --set min_freq=10 --format csv --panel 0
  grantlens page ai --set show_keywords=true --format pretty`,
	Args: cobra.ExactArgs(1),
	RunE: runPage,
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "List grants tagged as AI-related",
	Args:  cobra.NoArgs,
	RunE:  runTag,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "grantlens %s\n", version)
	},
}

var (
	pageSets   []string
	pageFormat string
	pagePanel  int
	pageOut    string
	tagTerms   []string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", `Directory of CSV files ("sample" for built-in data)`)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	pageCmd.Flags().StringArrayVar(&pageSets, "set", nil, "Widget selection key=value (repeatable)")
	pageCmd.Flags().StringVarP(&pageFormat, "format", "f", "json", "Output format: json, pretty, csv")
	pageCmd.Flags().IntVar(&pagePanel, "panel", 0, "Panel index for --format csv")
	pageCmd.Flags().StringVarP(&pageOut, "out", "o", "", "Write output to file instead of stdout")

	tagCmd.Flags().StringSliceVar(&tagTerms, "terms", nil, "Override the AI terms (comma separated)")

	rootCmd.AddCommand(serveCmd, pageCmd, tagCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ============================================================================
// COMMANDS
// ============================================================================

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := loadDataset(ctx)
	if err != nil {
		return err
	}
	defer ds.Close()

	srv := server.New(newRegistry(ds),
		server.WithLogger(logger),
		server.WithSessionLimit(cfg.Server.MaxSessions),
		server.WithSessionTTL(cfg.Server.SessionTTL),
	)
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

func runPage(cmd *cobra.Command, args []string) error {
	raw, err := parseSets(pageSets)
	if err != nil {
		return err
	}
	ds, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	defer ds.Close()

	page, err := newRegistry(ds).Render(args[0], raw)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if pageOut != "" {
		f, err := os.Create(pageOut)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := writePage(w, page, pageFormat, pagePanel); err != nil {
		return err
	}
	if pageOut != "" {
		logger.Info("page written", zap.String("page", page.Name), zap.String("path", pageOut))
	}
	return nil
}

func runTag(cmd *cobra.Command, _ []string) error {
	ds, err := loadDataset(cmd.Context())
	if err != nil {
		return err
	}
	defer ds.Close()

	terms := cfg.AI.Terms
	if len(tagTerms) > 0 {
		terms = tagTerms
	}
	if len(terms) == 0 {
		terms = tagger.DefaultAITerms
	}
	set, err := tagger.New(terms, tagger.WithLogger(logger)).TagGrants(ds.Keywords(), ds.GrantKeywords(), ds.Grants())
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), map[string]any{
		"terms":    terms,
		"keywords": engine.Rows(set.Keywords),
		"ids":      set.IDs(),
		"grants":   engine.UniqueValues(set.Grants, tagger.GrantIdentifier),
	}, "pretty")
}

// ============================================================================
// WIRING
// ============================================================================

func loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	src, err := openSource(ctx, cfg.Data)
	if err != nil {
		return nil, err
	}
	ds, err := dataset.Load(ctx, src, schema.Default(),
		dataset.WithLogger(logger), dataset.WithConcurrency(cfg.Data.Concurrency))
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return ds, nil
}

func openSource(ctx context.Context, data config.Data) (dataset.Source, error) {
	switch data.Driver {
	case config.DriverSample:
		return dataset.Sample(), nil
	case config.DriverDir:
		return dataset.NewDirSource(data.Dir), nil
	case config.DriverS3:
		src, err := dataset.NewS3Source(ctx, dataset.S3Config{
			Region:    data.S3.Region,
			Bucket:    data.S3.Bucket,
			Prefix:    data.S3.Prefix,
			Endpoint:  data.S3.Endpoint,
			PathStyle: data.S3.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.DriverSQL:
		src, err := dataset.NewSQLSource(ctx, data.SQL.Driver, data.SQL.DSN)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unknown data driver %q", config.ErrInvalidConfig, data.Driver)
	}
}

func newRegistry(ds *dataset.Dataset) *pages.Registry {
	return pages.New(ds,
		pages.WithLogger(logger),
		pages.WithAITerms(cfg.AI.Terms),
		pages.WithNetworkImage(cfg.Assets.NetworkImage),
		pages.WithTopN(cfg.Pages.TopN),
	)
}

// ============================================================================
// OUTPUT
// ============================================================================

// parseSets turns repeated key=value flags into raw widget selections.
func parseSets(sets []string) (map[string]string, error) {
	raw := make(map[string]string, len(sets))
	for _, s := range sets {
		key, value, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: want key=value", s)
		}
		raw[key] = value
	}
	return raw, nil
}

func writePage(w io.Writer, page *pages.Page, format string, panel int) error {
	switch format {
	case "json", "pretty":
		return writeJSON(w, page, format)
	case "csv":
		if len(page.Panels) == 0 {
			return writeMetricsCSV(w, page.Metrics)
		}
		if panel < 0 || panel >= len(page.Panels) {
			return fmt.Errorf("--panel %d: page %s has %d panels", panel, page.Name, len(page.Panels))
		}
		return render.CSV(page.Panels[panel], w)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeMetricsCSV(w io.Writer, metrics []engine.Metric) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Metric", "Value", "Unit"})
	for _, m := range metrics {
		_ = cw.Write([]string{m.Title, strconv.FormatFloat(m.RawValue, 'f', -1, 64), m.Unit})
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, v any, format string) error {
	var out []byte
	var err error
	if format == "pretty" {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
