package refpix

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ukaji3/refpix-go/pkg/refpix/models"
	"github.com/ukaji3/refpix-go/pkg/refpix/parser"
	"github.com/ukaji3/refpix-go/pkg/refpix/store"
	"github.com/ukaji3/refpix-go/pkg/refpix/upload"
	"go.uber.org/zap"
)

// Config wires a Processor.
type Config struct {
	// Defaults supplies the options Process does not take as arguments.
	Defaults Options
	Upload   upload.Config
	// RunTimeout bounds each run. Zero means no deadline.
	RunTimeout time.Duration
}

// Processor runs extraction and upload for one spreadsheet at a time. It
// holds no per-run state and may be shared between goroutines.
type Processor struct {
	pipeline   *upload.Pipeline
	defaults   Options
	runTimeout time.Duration
	logger     *zap.Logger
}

// New returns a processor uploading to s.
func New(s store.Store, cfg Config, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := cfg.Defaults
	if defaults == (Options{}) {
		defaults = DefaultOptions()
	}
	return &Processor{
		pipeline:   upload.NewPipeline(s, cfg.Upload, logger),
		defaults:   defaults.normalized(),
		runTimeout: cfg.RunTimeout,
		logger:     logger,
	}
}

// Defaults returns the options used for arguments Process does not take.
func (p *Processor) Defaults() Options {
	return p.defaults
}

// Process extracts and uploads the pictures of the spreadsheet at path using
// the given start row and photo column.
func (p *Processor) Process(ctx context.Context, path string, startRow int, photoColumn string) (*models.RunStatistics, error) {
	opts := p.defaults
	opts.StartRow = startRow
	opts.PhotoColumn = photoColumn
	return p.ProcessWithOptions(ctx, path, opts)
}

// ProcessWithOptions is Process with every option explicit.
//
// It fails only when the options are invalid or the file cannot be read as a
// spreadsheet, returning a *ContainerError in the latter case. Every other
// problem is recorded in the returned statistics.
func (p *Processor) ProcessWithOptions(ctx context.Context, path string, opts Options) (*models.RunStatistics, error) {
	opts = opts.normalized()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	stats := models.NewRunStatistics()
	stats.RunID = uuid.NewString()
	stats.File = filepath.Base(path)
	stats.StartRow = opts.StartRow
	stats.PhotoColumn = opts.PhotoColumn
	stats.StartedAt = time.Now()

	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	log := p.logger.With(zap.String("run_id", stats.RunID), zap.String("file", stats.File))
	log.Info("Processing spreadsheet",
		zap.Int("start_row", opts.StartRow),
		zap.String("photo_column", opts.PhotoColumn),
		zap.String("ref_column", opts.RefColumn))

	associations, err := p.extract(path, opts, stats, log)
	if err != nil {
		log.Error("Spreadsheet unreadable", zap.Error(err))
		return nil, err
	}
	log = log.With(zap.String("sheet", stats.Sheet))

	p.pipeline.Run(ctx, associations, stats)
	stats.FinishedAt = time.Now()

	log.Info("Run complete",
		zap.Int("total_refs", stats.TotalRefs),
		zap.Int("images_found", stats.ImagesFound),
		zap.Int("uploads_successful", stats.UploadsSuccessful),
		zap.Int("uploads_failed", stats.UploadsFailed),
		zap.Int("warnings", len(stats.Warnings)),
		zap.Duration("elapsed", stats.FinishedAt.Sub(stats.StartedAt)))
	return stats, nil
}

// extract runs the single-threaded parsing stages and reads every matched
// picture's bytes before the container is closed.
func (p *Processor) extract(path string, opts Options, stats *models.RunStatistics, log *zap.Logger) ([]models.Association, error) {
	warn := func(msg string, err error) {
		if err != nil {
			msg += ": " + err.Error()
		}
		stats.Warnings = append(stats.Warnings, msg)
		log.Warn(msg)
	}

	c, err := parser.OpenContainer(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewContainerError(path, ErrFileNotFound, err)
		}
		return nil, NewContainerError(path, ErrInvalidFormat, err)
	}
	defer c.Close()

	loc, err := parser.LocateSheet(c, opts.Sheet)
	if err != nil {
		return nil, NewContainerError(path, ErrInvalidFormat, err)
	}
	stats.Sheet = loc.Name

	ids, err := parser.ReadIdentifierColumn(c, loc.Name, opts.StartRow, opts.RefColumn)
	if err != nil {
		return nil, NewContainerError(path, ErrInvalidFormat, err)
	}
	stats.TotalRefs = len(ids)

	if loc.DrawingPath == "" {
		log.Info("Sheet has no drawing", zap.String("sheet", loc.Name))
		return nil, nil
	}

	refs, err := parser.ResolveImageReferences(c, loc.DrawingPath)
	if err != nil {
		warn("image relationships unavailable", err)
		if errors.Is(err, parser.ErrRelationshipsMissing) {
			return nil, nil
		}
	}

	anchors, diagnostics := parser.ParseAnchors(c, loc.DrawingPath)
	for _, d := range diagnostics {
		warn("skipped anchor", d)
	}
	anchors, diagnostics = parser.AttachSources(anchors, refs)
	for _, d := range diagnostics {
		warn("skipped anchor", d)
	}

	photoCol, _ := parser.ColumnIndex(opts.PhotoColumn)
	candidates, notes := parser.Associate(ids, anchors, photoCol)
	for _, n := range notes {
		warn(n, nil)
	}

	associations := make([]models.Association, 0, len(candidates))
	for _, cand := range candidates {
		a := models.Association{
			Ref:         cand.Ref,
			Row:         cand.Row,
			ReferenceID: cand.ReferenceID,
			SourceEntry: cand.SourceEntry,
		}
		a.Data, a.ReadErr = c.ReadEntry(cand.SourceEntry)
		a.Format = upload.DetectFormat(a.Data)
		associations = append(associations, a)
	}

	log.Debug("Extraction finished",
		zap.String("drawing", loc.DrawingPath),
		zap.Int("anchors", len(anchors)),
		zap.Int("associations", len(associations)))
	return associations, nil
}

// ProcessSpreadsheet runs one spreadsheet against s with default settings
// apart from the given start row and photo column.
func ProcessSpreadsheet(ctx context.Context, s store.Store, path string, startRow int, photoColumn string) (*models.RunStatistics, error) {
	cfg := Config{
		Upload: upload.Config{
			BasePath: "images/products",
			Workers:  4,
			Retry:    upload.DefaultRetryPolicy(),
		},
	}
	return New(s, cfg, nil).Process(ctx, path, startRow, photoColumn)
}
