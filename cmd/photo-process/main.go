package main

import (
	"os"
	"time"

	"github.com/fpang/photo-batch/internal/cli"
	"github.com/fpang/photo-batch/internal/config"
	"github.com/fpang/photo-batch/internal/jobs"
	"github.com/fpang/photo-batch/internal/logging"
	"github.com/fpang/photo-batch/internal/metrics"
	"github.com/fpang/photo-batch/internal/pipeline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	indirFlag         string
	outdirFlag        string
	minDateFlag       string
	strictFlag        bool
	dryRunFlag        bool
	watermarkTextFlag string
	fontRatioFlag     float64
	fontFlag          string
	maxDimensionFlag  int
	qualityFlag       int
	metricsFlag       bool
	interactiveFlag   bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "photo-process",
	Short: "Resize and watermark photographs into per-date folders",
	Long: `Photo Process walks a directory tree of photographs, reads each image's
capture date from its EXIF DateTime tag, skips images taken before the minimum
date, and writes a resized copy (at most 800px on the long side by default)
with a faint diagonal watermark to <outdir>/<YYYY-MM-DD>/<file name>.

Images are recognised by content, not extension. Images without a readable
capture date are skipped with a warning; pass --strict to stop instead.
Re-running over the same tree overwrites earlier output.

Settings can also come from PHOTO_* environment variables or a .env file;
flags take precedence.

Examples:
  photo-process --indir ./camera-roll --outdir ./web
  photo-process --indir ./camera-roll --outdir ./web --min-date 01/01/23
  photo-process --indir ./raw --outdir ./out --watermark-text "(C) Club" --font-ratio 1.8
  photo-process --indir ./raw --outdir ./out --dry-run
  photo-process  # Interactive mode - prompts for directories`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&indirFlag, "indir", "i", "", "Directory containing the photographs to process")
	rootCmd.Flags().StringVarP(&outdirFlag, "outdir", "o", "", "Directory to write dated output folders into")
	rootCmd.Flags().StringVar(&minDateFlag, "min-date", config.DefaultMinDate, "Skip images captured before this date (DD/MM/YY)")
	rootCmd.Flags().BoolVar(&strictFlag, "strict", false, "Stop at the first image without a usable capture date")
	rootCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Report what would be written without writing")
	rootCmd.Flags().StringVar(&watermarkTextFlag, "watermark-text", config.DefaultWatermarkText, "Watermark text")
	rootCmd.Flags().Float64Var(&fontRatioFlag, "font-ratio", config.DefaultFontRatio, "Glyph width divisor used to size the watermark font")
	rootCmd.Flags().StringVar(&fontFlag, "font", "", "TTF/OTF font for the watermark (default: Go Regular)")
	rootCmd.Flags().IntVar(&maxDimensionFlag, "max-dimension", config.DefaultMaxDimension, "Bounding box for resized output, in pixels")
	rootCmd.Flags().IntVar(&qualityFlag, "quality", config.DefaultJPEGQuality, "JPEG quality (1-100)")
	rootCmd.Flags().BoolVar(&metricsFlag, "metrics", false, "Print a JSON metrics document to stdout when done")
	rootCmd.Flags().BoolVar(&interactiveFlag, "interactive", false, "Use native folder dialogs for missing directories")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid flags")
	}

	if cfg.InputDir == "" {
		cfg.InputDir = askDirectory("Input", "Select photographs folder")
	}
	cfg.InputDir = cli.ValidateAndResolveDirectory(cfg.InputDir)

	if cfg.OutputDir == "" {
		cfg.OutputDir = askDirectory("Output", "Select output folder")
	}
	if cfg.OutputDir, err = cli.ResolveOutputDirectory(cfg.OutputDir); err != nil {
		log.Fatal().Err(err).Msg("Invalid output directory")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	runID := jobs.GenerateID("process-")
	logging.NewRunLogger("photo-process").
		RunID(runID).
		Dir("input", cfg.InputDir).
		Dir("output", cfg.OutputDir).
		Feature("strict", cfg.StrictMetadata).
		Feature("dryRun", cfg.DryRun).
		Feature("metrics", cfg.EmitMetrics).
		Configs(cfg.Summary()).
		Log()

	p, err := pipeline.New(cfg, pipeline.WithRunID(runID))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise pipeline")
	}

	start := time.Now()
	stats, runErr := p.Run()
	elapsed := time.Since(start)

	cli.PrintSummary(os.Stdout, "Batch complete",
		cli.Field{Label: "Input", Value: cfg.InputDir},
		cli.Field{Label: "Output", Value: cfg.OutputDir},
		cli.Field{Label: "Images found", Value: stats.Discovered},
		cli.Field{Label: "Written", Value: stats.Written},
		cli.Field{Label: "Before min date", Value: stats.SkippedBeforeMinDate},
		cli.Field{Label: "No capture date", Value: stats.SkippedNoDate},
		cli.Field{Label: "Failed", Value: stats.Failed},
		cli.Field{Label: "Elapsed", Value: cli.FormatDurationShort(elapsed)},
	)

	if cfg.EmitMetrics {
		err := metrics.New("PhotoBatch", os.Stdout).
			Dimension("Command", "photo-process").
			Count("Discovered", stats.Discovered).
			Count("Written", stats.Written).
			Count("SkippedBeforeMinDate", stats.SkippedBeforeMinDate).
			Count("SkippedNoDate", stats.SkippedNoDate).
			Count("Failed", stats.Failed).
			Duration("Elapsed", elapsed).
			Property("runId", runID).
			Property("dryRun", cfg.DryRun).
			Flush()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to emit metrics")
		}
	}

	if runErr != nil {
		log.Fatal().Err(runErr).Str("run_id", runID).Msg("Batch aborted")
	}
}

// applyFlags overlays explicitly set flags onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("indir") {
		cfg.InputDir = indirFlag
	}
	if flags.Changed("outdir") {
		cfg.OutputDir = outdirFlag
	}
	if flags.Changed("min-date") {
		d, err := config.ParseMinDate(minDateFlag)
		if err != nil {
			return err
		}
		cfg.MinDate = d
	}
	if flags.Changed("strict") {
		cfg.StrictMetadata = strictFlag
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = dryRunFlag
	}
	if flags.Changed("watermark-text") {
		cfg.Watermark.Text = watermarkTextFlag
	}
	if flags.Changed("font-ratio") {
		cfg.Watermark.FontRatio = fontRatioFlag
	}
	if flags.Changed("font") {
		cfg.Watermark.FontPath = fontFlag
	}
	if flags.Changed("max-dimension") {
		cfg.Transform.MaxDimension = maxDimensionFlag
	}
	if flags.Changed("quality") {
		cfg.Transform.JPEGQuality = qualityFlag
	}
	if flags.Changed("metrics") {
		cfg.EmitMetrics = metricsFlag
	}
	return nil
}

// askDirectory fills in a directory the user did not pass, with a native
// dialog when --interactive is set and a terminal prompt otherwise.
func askDirectory(label, title string) string {
	if !interactiveFlag {
		return cli.PromptForDirectory(label)
	}
	dir, err := cli.PickDirectory(title)
	if err != nil {
		log.Fatal().Err(err).Msg("No directory selected")
	}
	return dir
}
