package upload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
	"github.com/ukaji3/refpix-go/pkg/refpix/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config tunes a Pipeline.
type Config struct {
	// BasePath prefixes every destination key.
	BasePath string
	// Workers bounds concurrent transfers. Values below 1 mean 1.
	Workers int
	// RateLimit caps transfer attempts per second across all workers.
	// Zero disables the limit.
	RateLimit float64
	// Retry governs repeated attempts of one transfer.
	Retry RetryPolicy
	// PublicURL, when set, is joined with the key to report where each
	// stored image can be fetched.
	PublicURL string
}

// Pipeline validates associations and transfers them to a store.
type Pipeline struct {
	store   store.Store
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewPipeline returns a pipeline writing to s.
func NewPipeline(s store.Store, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	p := &Pipeline{store: s, cfg: cfg, logger: logger}
	if cfg.RateLimit > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	return p
}

// job is one association with its position in the row-ordered input.
type job struct {
	index int
	assoc models.Association
}

// collector accumulates terminal outcomes from concurrent workers.
type collector struct {
	mu       sync.Mutex
	stats    *models.RunStatistics
	results  []models.UploadResult
	done     []bool
	warnings []string
}

func (c *collector) record(index int, result models.UploadResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done[index] {
		return
	}
	c.done[index] = true
	c.results[index] = result
	switch result.Status {
	case models.StatusSucceeded:
		c.stats.UploadsSuccessful++
	default:
		c.stats.UploadsFailed++
	}
}

func (c *collector) warn(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, msg)
}

// Run processes every association to exactly one terminal outcome and
// records the outcomes on stats. Associations are processed concurrently
// but reported in ascending row order.
//
// When ctx is done, associations not yet handed to a worker fail with
// DeadlineExceeded without a transfer attempt. Run always returns after every
// association has an outcome.
func (p *Pipeline) Run(ctx context.Context, associations []models.Association, stats *models.RunStatistics) {
	ordered := make([]models.Association, len(associations))
	copy(ordered, associations)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Row < ordered[j].Row })

	stats.ImagesFound = len(ordered)
	c := &collector{
		stats:   stats,
		results: make([]models.UploadResult, len(ordered)),
		done:    make([]bool, len(ordered)),
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := min(p.cfg.Workers, max(len(ordered), 1))
	for i := 1; i <= workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, jobs, c, &wg)
	}

	for i, a := range ordered {
		if ctx.Err() != nil {
			c.record(i, p.deadlineResult(ctx, a, 0, nil, nil))
			continue
		}
		select {
		case jobs <- job{index: i, assoc: a}:
		case <-ctx.Done():
			c.record(i, p.deadlineResult(ctx, a, 0, nil, nil))
		}
	}
	close(jobs)
	wg.Wait()
	c.warnings = append(c.warnings, sharedKeyWarnings(c.results)...)

	stats.Results = append(stats.Results, c.results...)
	stats.Warnings = append(stats.Warnings, c.warnings...)
	for _, r := range c.results {
		if r.Status == models.StatusFailed {
			stats.Errors = append(stats.Errors, FormatError(r))
		}
	}
}

func (p *Pipeline) worker(ctx context.Context, id int, jobs <-chan job, c *collector, wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range jobs {
		if ctx.Err() != nil {
			c.record(j.index, p.deadlineResult(ctx, j.assoc, 0, nil, nil))
			continue
		}
		c.record(j.index, p.process(ctx, id, j.assoc, c))
	}
}

// process walks one association through validation and transfer.
func (p *Pipeline) process(ctx context.Context, workerID int, a models.Association, c *collector) models.UploadResult {
	result := models.UploadResult{
		Ref:    a.Ref,
		Row:    a.Row,
		Format: a.Format,
		Size:   len(a.Data),
	}
	log := p.logger.With(zap.String("ref", a.Ref), zap.Int("row", a.Row), zap.Int("worker", workerID))

	if a.ReadErr != nil {
		log.Warn("Picture bytes unavailable", zap.String("entry", a.SourceEntry), zap.Error(a.ReadErr))
		return failed(result, models.ReasonMissingMedia, a.ReadErr)
	}

	format := a.Format
	if format == models.FormatUnknown {
		err := unsupportedFormatError(a.Data)
		log.Warn("Rejected picture", zap.String("entry", a.SourceEntry), zap.Error(err))
		return failed(result, models.ReasonUnsupportedFormat, err)
	}

	ext, normalized := Extension(a.SourceEntry, format)
	if normalized {
		c.warn(fmt.Sprintf("REF %s (row %d): media entry %s holds %s data; uploading as .%s",
			a.Ref, a.Row, a.SourceEntry, format, ext))
	}
	result.Key = DestinationKey(p.cfg.BasePath, a.Ref, a.Row, ext)
	result.Checksum = Checksum(a.Data)
	log = log.With(zap.String("key", result.Key))

	obj := store.Object{Key: result.Key, Body: a.Data, ContentType: format.ContentType()}
	start := time.Now()

	attempts, err := p.cfg.Retry.Do(ctx, func(attemptCtx context.Context, attempt int) error {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return deadlineError(ctx, nil)
			}
		}
		err := p.store.Put(attemptCtx, obj)
		if err != nil {
			log.Warn("Transfer attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	result.Attempts = attempts

	switch {
	case err == nil:
		result.Status = models.StatusSucceeded
		if p.cfg.PublicURL != "" {
			result.URL = strings.TrimRight(p.cfg.PublicURL, "/") + "/" + strings.TrimLeft(result.Key, "/")
		}
		log.Info("Uploaded picture",
			zap.Int("attempts", attempts),
			zap.Int("bytes", result.Size),
			zap.Duration("elapsed", time.Since(start)))
		return result
	case errors.Is(err, ErrRunDeadline):
		log.Warn("Run deadline reached before upload completed", zap.Int("attempts", attempts))
		return p.deadlineResult(ctx, a, attempts, &result, err)
	case store.IsPermanent(err):
		log.Error("Upload rejected", zap.Int("attempts", attempts), zap.Error(err))
		return failed(result, models.ReasonPermanent, err)
	default:
		log.Error("Upload failed after retries", zap.Int("attempts", attempts), zap.Error(err))
		return failed(result, models.ReasonTransient, err)
	}
}

// deadlineResult fails a with DeadlineExceeded, keeping whatever base already
// records. A nil err means no transfer was attempted.
func (p *Pipeline) deadlineResult(ctx context.Context, a models.Association, attempts int, base *models.UploadResult, err error) models.UploadResult {
	result := models.UploadResult{Ref: a.Ref, Row: a.Row, Format: a.Format, Size: len(a.Data)}
	if base != nil {
		result = *base
	}
	result.Attempts = attempts

	if err == nil {
		cause := context.Cause(ctx)
		if cause == nil {
			cause = context.DeadlineExceeded
		}
		p.logger.Debug("Skipped queued picture", zap.String("ref", a.Ref), zap.Int("row", a.Row))
		err = fmt.Errorf("not attempted: %w", cause)
	}
	return failed(result, models.ReasonDeadlineExceeded, err)
}

func failed(result models.UploadResult, reason string, err error) models.UploadResult {
	result.Status = models.StatusFailed
	result.Reason = reason
	result.Error = err.Error()
	return result
}

// sharedKeyWarnings reports distinct REFs whose sanitized names collided, so
// that two stored pictures landed on one key. Repeats of the same REF are
// reported during association.
func sharedKeyWarnings(results []models.UploadResult) []string {
	var warnings []string
	first := make(map[string]models.UploadResult)
	for _, r := range results {
		if r.Status != models.StatusSucceeded {
			continue
		}
		prev, ok := first[r.Key]
		if !ok {
			first[r.Key] = r
			continue
		}
		if prev.Ref != r.Ref {
			warnings = append(warnings, fmt.Sprintf(
				"REF %s (row %d) and REF %s (row %d) were both stored at %s; only one picture is kept",
				prev.Ref, prev.Row, r.Ref, r.Row, r.Key))
		}
	}
	return warnings
}

// FormatError renders a failed result as recorded in RunStatistics.Errors.
func FormatError(r models.UploadResult) string {
	return fmt.Sprintf("REF %s (row %d): %s: %s", r.Ref, r.Row, r.Reason, r.Error)
}
