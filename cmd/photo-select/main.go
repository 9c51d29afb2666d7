package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fpang/photo-batch/internal/assets"
	"github.com/fpang/photo-batch/internal/cli"
	"github.com/fpang/photo-batch/internal/config"
	"github.com/fpang/photo-batch/internal/jobs"
	"github.com/fpang/photo-batch/internal/logging"
	"github.com/fpang/photo-batch/internal/selection"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	targetsFlag         string
	originalsFlag       string
	processedFlag       string
	selectionFlag       string
	archiveFlag         string
	releaseTemplateFlag string
	partiesFlag         string
	interactiveFlag     bool
	dryRunFlag          bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "photo-select",
	Short: "Export the originals of a curated photo shortlist",
	Long: `Photo Select takes a list of image stems (file names without extension, one
per line) and matches each against both the originals tree and the processed
tree written by photo-process. Stems found in both are kept; the rest are
reported and dropped.

Each matched original is copied to <selection>/<date folder>/<file name>, where
the date folder is the one photo-process placed the processed copy in. A
per-camera count and a usage-release block listing every matched file are
printed; --archive additionally packs the selection into a zstd ZIP.

Examples:
  photo-select --targets picks.txt --originals ./camera-roll --processed ./web --selection ./selected
  photo-select --interactive --originals ./camera-roll --processed ./web --selection ./selected
  photo-select --targets picks.txt --originals ./raw --processed ./web --selection ./sel --archive sel.zip
  photo-select --targets picks.txt --originals ./raw --processed ./web --selection ./sel --dry-run`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&targetsFlag, "targets", "t", "", "File with one image stem per line")
	rootCmd.Flags().StringVar(&originalsFlag, "originals", "", "Root of the original photographs (camera subfolders)")
	rootCmd.Flags().StringVar(&processedFlag, "processed", "", "Root of the processed output (date subfolders)")
	rootCmd.Flags().StringVar(&selectionFlag, "selection", "", "Directory to copy matched originals into")
	rootCmd.Flags().StringVar(&archiveFlag, "archive", "", "Also write the selection to this ZIP file")
	rootCmd.Flags().StringVar(&releaseTemplateFlag, "release-template", "", "text/template file replacing the built-in usage release")
	rootCmd.Flags().StringVar(&partiesFlag, "parties", config.DefaultReleaseParties, "Parties named in the usage release")
	rootCmd.Flags().BoolVar(&interactiveFlag, "interactive", false, "Pick the targets file with a native dialog when --targets is omitted")
	rootCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Report matches without copying")
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
	if cmd.Flags().Changed("parties") {
		cfg.Release.Parties = partiesFlag
	}
	if cmd.Flags().Changed("release-template") {
		cfg.Release.TemplatePath = releaseTemplateFlag
	}
	cfg.DryRun = dryRunFlag

	targetsPath := resolveTargetsPath()
	targets, err := selection.LoadTargets(targetsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", targetsPath).Msg("Failed to read targets")
	}
	if len(targets) == 0 {
		log.Fatal().Str("path", targetsPath).Msg("Targets file lists no stems")
	}

	originals := requireDirFlag(originalsFlag, "originals")
	processed := requireDirFlag(processedFlag, "processed")
	if selectionFlag == "" {
		log.Fatal().Msg("--selection is required")
	}
	selectionRoot, err := cli.ResolveOutputDirectory(selectionFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid selection directory")
	}

	tmpl, err := assets.LoadReleaseTemplate(cfg.Release.TemplatePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load release template")
	}

	runID := jobs.GenerateID("select-")
	logging.NewRunLogger("photo-select").
		RunID(runID).
		Dir("originals", originals).
		Dir("processed", processed).
		Dir("selection", selectionRoot).
		Feature("dryRun", cfg.DryRun).
		Feature("archive", archiveFlag != "").
		Config("targetsFile", targetsPath).
		Config("parties", cfg.Release.Parties).
		Log()

	r, err := selection.New(
		selection.WithOutput(os.Stdout),
		selection.WithReleaseTemplate(tmpl),
		selection.WithParties(cfg.Release.Parties),
		selection.WithDryRun(cfg.DryRun),
		selection.WithRunID(runID),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise selection")
	}

	result, err := r.Run(selection.Request{
		Targets:       targets,
		OriginalsRoot: originals,
		ProcessedRoot: processed,
		SelectionRoot: selectionRoot,
	})
	if err != nil {
		log.Fatal().Err(err).Str("run_id", runID).Msg("Selection failed")
	}

	cli.PrintSummary(os.Stdout, "Selection complete",
		cli.Field{Label: "Targets", Value: len(targets)},
		cli.Field{Label: "Matched", Value: len(result.Rows)},
		cli.Field{Label: "Unmatched", Value: len(result.Unmatched)},
		cli.Field{Label: "Duplicate originals", Value: result.DuplicateOriginals},
		cli.Field{Label: "Copied", Value: result.Copied},
	)

	if archiveFlag != "" && !cfg.DryRun && result.Copied > 0 {
		archivePath, err := filepath.Abs(archiveFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid archive path")
		}
		if _, err := selection.WriteArchive(selectionRoot, archivePath); err != nil {
			log.Fatal().Err(err).Msg("Failed to archive selection")
		}
	}
}

// resolveTargetsPath returns --targets, or a file picked through the native
// dialog when --interactive is set.
func resolveTargetsPath() string {
	if targetsFlag != "" {
		return targetsFlag
	}
	if !interactiveFlag {
		log.Fatal().Msg("--targets is required (or pass --interactive to pick a file)")
	}
	path, err := cli.PickTargetsFile()
	if err != nil {
		if errors.Is(err, cli.ErrPickerCanceled) {
			log.Fatal().Msg("No targets file selected")
		}
		log.Fatal().Err(err).Msg("Failed to open file dialog")
	}
	return path
}

func requireDirFlag(value, name string) string {
	if value == "" {
		log.Fatal().Msgf("--%s is required", name)
	}
	return cli.ValidateAndResolveDirectory(value)
}
