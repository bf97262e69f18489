// Package carving orchestrates deleted-text recovery: it drives the block
// scan loop over a device, dispatches the carving passes, deduplicates and
// filters what they emit, and persists or previews the survivors under
// resource control.
package carving

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/carvex/carvex/internal/domain/carving"
	"github.com/carvex/carvex/internal/domain/detection"
	"github.com/carvex/carvex/internal/domain/filtering"
	"github.com/carvex/carvex/internal/infra/device"
	"github.com/carvex/carvex/internal/infra/resources"
	"github.com/carvex/carvex/internal/infra/storage"
	"github.com/carvex/carvex/pkg/common/logger"
)

// progressInterval is how many blocks elapse between progress reports.
const progressInterval = 1000

// RecoverRequest describes one recovery scan.
type RecoverRequest struct {
	// DevicePath is the logical volume, physical disk, or file-backed
	// image to scan.
	DevicePath string `validate:"required"`

	// OutputDir receives recovered files. Unused in preview mode.
	OutputDir string `validate:"required_unless=PreviewOnly true"`

	// FileTypes restricts recoveries to the listed type labels. Empty
	// allows every type.
	FileTypes []string

	// SearchPattern restricts recoveries to names matching the pattern
	// (substring, or wildcard with * and %). Empty matches everything.
	SearchPattern string

	// FilterSystem excludes operating system artifacts.
	FilterSystem bool

	// PreviewOnly records what would be recovered without writing files.
	PreviewOnly bool
}

// Progress is a periodic snapshot of a running scan.
type Progress struct {
	Blocks   int64
	Offset   int64
	Found    int
	MemoryMB float64
}

// ProgressFn receives progress snapshots. Called from the scan goroutine.
type ProgressFn func(Progress)

// Service runs recovery scans. One scan runs at a time; Cancel and Accepted
// may be called concurrently from other goroutines.
type Service struct {
	filter     *filtering.Engine
	classifier *detection.Classifier
	budget     resources.Budget
	monitor    *resources.Monitor
	throttle   *resources.Throttle
	strategies []carveStrategy
	progress   ProgressFn

	logger   *logger.Logger
	metrics  CarverMetrics
	tracer   trace.Tracer
	validate *validator.Validate

	cancelled atomic.Bool

	mu       sync.Mutex
	accepted []domain.RecoveredFile
}

// NewService creates a recovery service bound to a filter engine, a type
// classifier, and a resource budget. progress may be nil.
func NewService(
	filter *filtering.Engine,
	classifier *detection.Classifier,
	budget resources.Budget,
	progress ProgressFn,
	log *logger.Logger,
	metrics CarverMetrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		filter:     filter,
		classifier: classifier,
		budget:     budget,
		monitor:    resources.NewMonitor(budget),
		throttle:   resources.NewThrottle(budget.BlockDelay),
		strategies: newStrategies(),
		progress:   progress,
		logger:     log,
		metrics:    metrics,
		tracer:     tracer,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Cancel requests a graceful stop. The running scan finishes its current
// block and returns normally with a partial count; results accepted so far
// are preserved.
func (s *Service) Cancel() { s.cancelled.Store(true) }

// Accepted returns a snapshot of the recoveries accepted by the most recent
// scan (including a scan still in progress).
func (s *Service) Accepted() []domain.RecoveredFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RecoveredFile, len(s.accepted))
	copy(out, s.accepted)
	return out
}

// Recover scans the device block by block and returns the number of accepted
// recoveries. Cancellation (via Cancel or the context) is not an error: the
// scan stops at the next block boundary and returns the partial count with a
// nil error. Budget exhaustion that survives a cache cleanup is reported as
// resources.ErrBudgetExceeded.
func (s *Service) Recover(ctx context.Context, req RecoverRequest) (int, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("invalid recovery request: %w", err)
	}

	scanID := uuid.New().String()
	ctx, span := s.tracer.Start(ctx, "carving_service.recover",
		trace.WithAttributes(
			attribute.String("scan_id", scanID),
			attribute.String("device_path", req.DevicePath),
			attribute.Bool("preview_only", req.PreviewOnly),
			attribute.Int64("max_memory_mb", s.budget.MaxMemoryMB),
		))
	defer span.End()

	log := s.logger.With("scan_id", scanID)

	s.cancelled.Store(false)
	s.mu.Lock()
	s.accepted = nil
	s.mu.Unlock()

	var sink *storage.Sink
	if !req.PreviewOnly {
		var err error
		if sink, err = storage.NewSink(req.OutputDir); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "output directory unavailable")
			return 0, err
		}
	}

	handle, err := device.Open(req.DevicePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "device open failed")
		return 0, err
	}
	defer handle.Close()

	sess := newSession(s.budget.MaxMemoryMB, s.budget.BufferDepth)
	buf := make([]byte, BlockSize)

	log.Info(ctx, "recovery scan started",
		"device_path", req.DevicePath,
		"preview_only", req.PreviewOnly,
		"max_memory_mb", s.budget.MaxMemoryMB,
		"fingerprint_capacity", sess.cache.Capacity(),
	)

	for {
		if s.cancelled.Load() || ctx.Err() != nil {
			span.AddEvent("scan_cancelled")
			log.Info(ctx, "recovery scan cancelled",
				"blocks_scanned", sess.sc.blockIndex, "files_found", sess.found)
			break
		}

		n, err := handle.ReadBlock(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Bad sectors are expected on raw physical media; step
			// over the region and keep scanning. On logical targets
			// a read failure is fatal.
			if handle.Physical() {
				s.metrics.IncReadErrors(ctx)
				log.Debug(ctx, "skipping unreadable region",
					"offset", sess.offset, "error", err.Error())
				if skipErr := handle.Skip(BlockSize); skipErr != nil {
					log.Warn(ctx, "cannot advance past unreadable region, stopping",
						"offset", sess.offset, "error", skipErr.Error())
					break
				}
				sess.offset += BlockSize
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "device read failed")
			return sess.found, fmt.Errorf("reading %q at offset %d: %w", req.DevicePath, sess.offset, err)
		}

		s.carveBlock(ctx, log, sess, buf[:n], req, sink)
		s.metrics.IncBlocksScanned(ctx)

		sess.sc.blockIndex++
		sess.offset += int64(n)

		if sess.cleanupDue() {
			evicted := sess.cache.Cleanup()
			s.metrics.ObserveCacheSize(ctx, sess.cache.Len())
			if evicted > 0 {
				log.Debug(ctx, "fingerprint cache cleaned",
					"evicted", evicted, "cache_size", sess.cache.Len())
			}
		}

		if !s.monitor.WithinBudget() {
			sess.cache.Cleanup()
			if !s.monitor.WithinBudget() {
				err := fmt.Errorf("at block %d (%.0f MB used, %d MB budget): %w",
					sess.sc.blockIndex, s.monitor.MemoryUsageMB(),
					s.budget.MaxMemoryMB, resources.ErrBudgetExceeded)
				span.RecordError(err)
				span.SetStatus(codes.Error, "memory budget exceeded")
				return sess.found, err
			}
		}

		if sess.sc.blockIndex%progressInterval == 0 {
			s.reportProgress(ctx, log, sess)
		}

		if err := s.throttle.Wait(ctx); err != nil {
			// Context cancellation while pacing; cooperative stop.
			span.AddEvent("scan_cancelled")
			break
		}
	}

	span.SetAttributes(
		attribute.Int64("blocks_scanned", sess.sc.blockIndex),
		attribute.Int("files_found", sess.found),
	)
	span.SetStatus(codes.Ok, "scan complete")
	log.Info(ctx, "recovery scan finished",
		"blocks_scanned", sess.sc.blockIndex,
		"bytes_scanned", sess.offset,
		"files_found", sess.found,
	)
	return sess.found, nil
}

// carveBlock dispatches the carving passes over one block in fixed order and
// feeds every candidate through the accept pipeline.
func (s *Service) carveBlock(ctx context.Context, log *logger.Logger, sess *session, block []byte, req RecoverRequest, sink *storage.Sink) {
	blockOffset := sess.offset
	for _, st := range s.strategies {
		for _, cand := range st.carve(&sess.sc, block, blockOffset) {
			s.metrics.IncCandidates(ctx, cand.Method.String())
			s.acceptCandidate(ctx, log, sess, cand, req, sink)
		}
	}
}

// acceptCandidate runs one candidate through dedupe, naming, filtering, and
// persistence. A candidate is counted only after it has been durably written
// (or recorded, in preview mode).
func (s *Service) acceptCandidate(ctx context.Context, log *logger.Logger, sess *session, cand domain.Candidate, req RecoverRequest, sink *storage.Sink) {
	fp := domain.NewFingerprint(cand.Text)
	if !sess.cache.Add(fp) {
		s.metrics.IncDuplicates(ctx)
		return
	}

	originalName := filtering.ExtractName(cand.Text)
	detected := s.classifier.DetectType(cand.Data)
	filename := s.resolveFilename(sess, cand.Method, originalName, detected)

	ok, filterDetected := s.filter.ApplyFilters(filename, cand.Data, req.FileTypes, req.SearchPattern, req.FilterSystem)
	if !ok {
		s.metrics.IncFiltered(ctx)
		return
	}
	if detected == "" {
		detected = filterDetected
	}
	fileType := detected
	if fileType == "" {
		fileType = "txt"
	}

	record := domain.RecoveredFile{
		Filename:     filename,
		OriginalName: originalName,
		Type:         fileType,
		Size:         len(cand.Text),
		Offset:       cand.Offset,
		Method:       cand.Method,
	}

	if !req.PreviewOnly {
		if _, err := sink.Write(filename, cand.Text); err != nil {
			log.Warn(ctx, "write failed, retrying with generated name",
				"filename", filename, "error", err.Error())
			fallback := s.generatedName(sess, cand.Method, "txt")
			if _, err := sink.Write(fallback, cand.Text); err != nil {
				s.metrics.IncWriteErrors(ctx)
				log.Error(ctx, "dropping unwritable recovery",
					"offset", cand.Offset, "error", err.Error())
				return
			}
			record.Filename = fallback
		}
	}

	s.mu.Lock()
	s.accepted = append(s.accepted, record)
	s.mu.Unlock()
	sess.found++

	s.metrics.IncRecovered(ctx, cand.Method.String())
	log.Info(ctx, "file recovered",
		"filename", record.Filename,
		"original_name", record.OriginalName,
		"type", record.Type,
		"size", record.Size,
		"offset", record.Offset,
		"method", cand.Method.String(),
	)
}

// resolveFilename picks the output name for a candidate: the mined original
// name when one was found (extended with the detected type when it lacks an
// extension), otherwise a method-prefixed sequential name.
func (s *Service) resolveFilename(sess *session, method domain.CarveMethod, originalName, detected string) string {
	ext := detected
	if ext == "" {
		ext = "txt"
	}
	if originalName != "" {
		if path.Ext(originalName) == "" {
			return originalName + "." + ext
		}
		return originalName
	}
	return s.generatedName(sess, method, ext)
}

func (s *Service) generatedName(sess *session, method domain.CarveMethod, ext string) string {
	return fmt.Sprintf("%srecovered_%05d.%s", method.Prefix(), sess.found, ext)
}

func (s *Service) reportProgress(ctx context.Context, log *logger.Logger, sess *session) {
	mb := s.monitor.MemoryUsageMB()
	s.metrics.ObserveMemoryUsage(ctx, mb)
	if s.progress != nil {
		s.progress(Progress{
			Blocks:   sess.sc.blockIndex,
			Offset:   sess.offset,
			Found:    sess.found,
			MemoryMB: mb,
		})
	}
	log.Debug(ctx, "scan progress",
		"blocks_scanned", sess.sc.blockIndex,
		"offset", sess.offset,
		"files_found", sess.found,
		"memory_mb", mb,
	)
}
