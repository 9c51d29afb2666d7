// Package selection assembles a verified export set from a curated list of
// image stems.
//
// Both the originals tree and the processed tree are walked and indexed by
// stem. An inner join keeps only the stems present in both; each matched
// original is copied into a folder named after the processed copy's parent
// folder (the capture date folder written by the batch pipeline), and a
// usage-release block listing the matched originals is printed.
package selection

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/fpang/photo-batch/internal/assets"
	"github.com/fpang/photo-batch/internal/filehandler"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Request names the inputs of one reconciliation.
type Request struct {
	Targets       []string
	OriginalsRoot string
	ProcessedRoot string
	SelectionRoot string
}

// Row is one joined stem.
type Row struct {
	Stem          string
	OriginalPath  string
	ProcessedPath string

	// ProcessedSubfolder is the name of the folder holding the processed copy.
	ProcessedSubfolder string

	// CameraSubfolder is the first folder below the originals root, or "."
	// when the original sits directly in the root.
	CameraSubfolder string
}

// CameraCount is the number of joined rows from one camera subfolder.
type CameraCount struct {
	Camera string
	Count  int
}

// Result reports a completed reconciliation.
type Result struct {
	Rows []Row

	// Unmatched lists target stems missing from either tree, in target order.
	Unmatched []string

	CameraCounts       []CameraCount
	DuplicateOriginals int
	Copied             int
	Release            string
}

// OriginalIndex maps each stem to the first original discovered for it.
type OriginalIndex struct {
	Paths map[string]string

	// Order lists stems in discovery order.
	Order []string

	// Duplicates counts later originals dropped because their stem was
	// already indexed.
	Duplicates int
}

// IndexOriginals walks root and indexes images by stem, first occurrence
// wins. A nil keep admits every stem.
func IndexOriginals(root string, keep map[string]bool) OriginalIndex {
	idx := OriginalIndex{Paths: make(map[string]string)}
	for path := range filehandler.WalkImages(root) {
		stem := Stem(path)
		if keep != nil && !keep[stem] {
			continue
		}
		if first, ok := idx.Paths[stem]; ok {
			log.Debug().Str("stem", stem).Str("kept", first).Str("dropped", path).Msg("Duplicate original stem")
			idx.Duplicates++
			continue
		}
		idx.Paths[stem] = path
		idx.Order = append(idx.Order, stem)
	}
	return idx
}

// IndexProcessed walks root and indexes images by stem, keeping every path
// in discovery order. A nil keep admits every stem.
func IndexProcessed(root string, keep map[string]bool) map[string][]string {
	idx := make(map[string][]string)
	for path := range filehandler.WalkImages(root) {
		stem := Stem(path)
		if keep != nil && !keep[stem] {
			continue
		}
		idx[stem] = append(idx[stem], path)
	}
	return idx
}

// Join inner-joins the two indexes in originals discovery order. A stem with
// several processed copies is paired with the first one discovered.
func Join(originalsRoot string, originals OriginalIndex, processed map[string][]string) []Row {
	var rows []Row
	for _, stem := range originals.Order {
		copies := processed[stem]
		if len(copies) == 0 {
			continue
		}
		if len(copies) > 1 {
			log.Debug().Str("stem", stem).Int("copies", len(copies)).Msg("Several processed copies, using the first")
		}
		orig := originals.Paths[stem]
		rows = append(rows, Row{
			Stem:               stem,
			OriginalPath:       orig,
			ProcessedPath:      copies[0],
			ProcessedSubfolder: filepath.Base(filepath.Dir(copies[0])),
			CameraSubfolder:    cameraSubfolder(originalsRoot, orig),
		})
	}
	return rows
}

func cameraSubfolder(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "."
	}
	first, _, found := strings.Cut(filepath.ToSlash(rel), "/")
	if !found {
		return "."
	}
	return first
}

// GroupByCamera counts rows per camera subfolder, sorted by name.
func GroupByCamera(rows []Row) []CameraCount {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.CameraSubfolder]++
	}
	groups := make([]CameraCount, 0, len(counts))
	for camera, n := range counts {
		groups = append(groups, CameraCount{Camera: camera, Count: n})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Camera < groups[j].Camera })
	return groups
}

// Reconciler runs the selection workflow.
type Reconciler struct {
	out     io.Writer
	release *template.Template
	parties string
	dryRun  bool
	now     func() time.Time
	logger  zerolog.Logger
}

// Option customises a Reconciler.
type Option func(*Reconciler)

// WithOutput sets where the summary and release text are printed.
func WithOutput(w io.Writer) Option {
	return func(r *Reconciler) { r.out = w }
}

// WithReleaseTemplate replaces the embedded usage-release template.
func WithReleaseTemplate(t *template.Template) Option {
	return func(r *Reconciler) { r.release = t }
}

// WithParties sets the parties named in the release text.
func WithParties(parties string) Option {
	return func(r *Reconciler) { r.parties = parties }
}

// WithDryRun reports the join without copying anything.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

// WithRunID tags every log line of the run with id.
func WithRunID(id string) Option {
	return func(r *Reconciler) { r.logger = log.With().Str("run_id", id).Logger() }
}

// WithClock overrides the date stamped on the release text.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a Reconciler printing to stdout with the embedded template.
func New(opts ...Option) (*Reconciler, error) {
	tmpl, err := assets.LoadReleaseTemplate("")
	if err != nil {
		return nil, err
	}
	r := &Reconciler{
		out:     os.Stdout,
		release: tmpl,
		now:     time.Now,
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run indexes both trees, joins them on the requested stems, prints the
// camera summary and release text, then copies each matched original to
// SelectionRoot/<processed subfolder>/<original name>.
func (r *Reconciler) Run(req Request) (*Result, error) {
	keep := make(map[string]bool, len(req.Targets))
	for _, stem := range req.Targets {
		keep[stem] = true
	}

	r.logger.Info().
		Int("targets", len(keep)).
		Str("originals", req.OriginalsRoot).
		Str("processed", req.ProcessedRoot).
		Str("selection", req.SelectionRoot).
		Msg("Starting selection")

	originals := IndexOriginals(req.OriginalsRoot, keep)
	processed := IndexProcessed(req.ProcessedRoot, keep)
	rows := Join(req.OriginalsRoot, originals, processed)

	result := &Result{
		Rows:               rows,
		CameraCounts:       GroupByCamera(rows),
		DuplicateOriginals: originals.Duplicates,
	}

	matched := make(map[string]bool, len(rows))
	for _, row := range rows {
		matched[row.Stem] = true
	}
	for _, stem := range req.Targets {
		if !matched[stem] {
			result.Unmatched = append(result.Unmatched, stem)
		}
	}
	if len(result.Unmatched) > 0 {
		r.logger.Warn().Strs("stems", result.Unmatched).Msg("Target stems not found in both trees")
	}

	release, err := r.renderRelease(rows)
	if err != nil {
		return nil, err
	}
	result.Release = release
	r.printSummary(result)

	if r.dryRun {
		return result, nil
	}

	for _, row := range rows {
		dir := filepath.Join(req.SelectionRoot, row.ProcessedSubfolder)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return result, fmt.Errorf("failed to create selection folder %s: %w", dir, err)
		}
		dst := filepath.Join(dir, filepath.Base(row.OriginalPath))
		if err := filehandler.CopyFile(row.OriginalPath, dst); err != nil {
			return result, fmt.Errorf("failed to copy %s: %w", row.OriginalPath, err)
		}
		r.logger.Debug().Str("src", row.OriginalPath).Str("dst", dst).Msg("Original copied")
		result.Copied++
	}

	r.logger.Info().
		Int("matched", len(rows)).
		Int("unmatched", len(result.Unmatched)).
		Int("copied", result.Copied).
		Int("duplicate_originals", result.DuplicateOriginals).
		Msg("Selection complete")

	return result, nil
}

func (r *Reconciler) renderRelease(rows []Row) (string, error) {
	var files []string
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		name := filepath.Base(row.OriginalPath)
		if seen[name] {
			continue
		}
		seen[name] = true
		files = append(files, name)
	}
	return assets.RenderRelease(r.release, assets.ReleaseData{
		Parties: r.parties,
		Date:    r.now().Format("2006-01-02"),
		Files:   files,
	})
}

func (r *Reconciler) printSummary(result *Result) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "============================================")
	fmt.Fprintln(r.out, "Selection")
	fmt.Fprintln(r.out, "============================================")
	fmt.Fprintf(r.out, "Matched: %d\n", len(result.Rows))
	fmt.Fprintf(r.out, "Unmatched: %d\n", len(result.Unmatched))
	fmt.Fprintln(r.out, "--------------------------------------------")
	for _, group := range result.CameraCounts {
		fmt.Fprintf(r.out, "   %-24s %d\n", group.Camera, group.Count)
	}
	fmt.Fprintln(r.out, "--------------------------------------------")
	fmt.Fprintln(r.out, result.Release)
}
