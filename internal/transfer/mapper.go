// Package transfer implements the mapper pipeline: fetch one source file,
// optionally expand it, stage it to a temporary remote path, and commit it
// with an atomic move to its final remote path.
package transfer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/tomwhite/eggo/internal/config"
	"github.com/tomwhite/eggo/internal/decompress"
	"github.com/tomwhite/eggo/internal/fetch"
	"github.com/tomwhite/eggo/internal/journal"
	"github.com/tomwhite/eggo/internal/metrics"
	"github.com/tomwhite/eggo/internal/progress"
	"github.com/tomwhite/eggo/internal/record"
	"github.com/tomwhite/eggo/internal/storage"
	"github.com/tomwhite/eggo/internal/workspace"
)

const defaultContentType = "application/octet-stream"

// Mapper executes one transfer record. Single-threaded and synchronous;
// parallelism belongs to the framework that schedules tasks.
type Mapper struct {
	cfg     *config.Config
	store   storage.Client
	fetcher *fetch.Fetcher
	journal journal.Store
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewMapper creates a mapper. The journal may be nil; the pipeline runs the
// same without one, it just leaves no trace for gc.
func NewMapper(
	cfg *config.Config,
	store storage.Client,
	fetcher *fetch.Fetcher,
	journalStore journal.Store,
	metricsCollector *metrics.Collector,
	logger *zap.Logger,
) *Mapper {
	return &Mapper{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		journal: journalStore,
		metrics: metricsCollector,
		logger:  logger,
	}
}

// stagedFile pairs a local file with its staging and final destinations.
type stagedFile struct {
	local string
	tmp   storage.Path
	final storage.Path
}

// Run parses one input line and executes the transfer pipeline.
func (m *Mapper) Run(ctx context.Context, line string) error {
	startTime := time.Now()

	err := m.run(ctx, line)
	if err != nil {
		m.metrics.IncStatus("failed")
		m.logger.Error("Transfer failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(startTime)),
		)
	} else {
		m.metrics.IncStatus("success")
		m.logger.Info("Transfer completed",
			zap.String("duration", progress.FormatDuration(time.Since(startTime))),
		)
	}

	if pushErr := m.metrics.Push("eggo_mapper"); pushErr != nil {
		m.logger.Warn("Failed to push metrics", zap.Error(pushErr))
	}

	return err
}

func (m *Mapper) run(ctx context.Context, line string) error {
	rec, err := record.Parse(line)
	if err != nil {
		return &Error{Kind: KindBadRecord, Err: err}
	}

	logger := m.logger.With(
		zap.Int64("offset", rec.Offset),
		zap.String("source_url", rec.SourceURL),
		zap.String("final_path", rec.FinalRemotePath),
	)

	ws, err := workspace.New(m.scratchRoot(rec))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logger.Warn("Failed to remove scratch directory",
				zap.String("dir", ws.Dir()),
				zap.Error(closeErr))
		}
	}()

	logger.Debug("Created scratch directory", zap.String("dir", ws.Dir()))

	// Fetch
	fetchStart := time.Now()
	fetched, size, err := m.fetcher.Fetch(ctx, rec.SourceURL, ws.Dir())
	if err != nil {
		return &Error{Kind: KindFetch, Err: err}
	}
	m.metrics.AddBytes(size)
	m.metrics.ObservePhase("fetch", time.Since(fetchStart))
	logger.Info("Fetched source",
		zap.String("file", filepath.Base(fetched)),
		zap.String("size", progress.FormatBytes(size)),
		zap.String("duration", progress.FormatDuration(time.Since(fetchStart))),
	)

	// Compression dispatch
	switch rec.Compression {
	case record.CompressionNone:
		// forwarded as-is
	case record.CompressionGzip:
		expandStart := time.Now()
		expanded, err := decompress.ExpandAll(ws.Dir())
		if err != nil {
			return &Error{Kind: KindDecompress, Err: err}
		}
		m.metrics.ObservePhase("decompress", time.Since(expandStart))
		logger.Info("Expanded archives", zap.Int("files", len(expanded)))
	default:
		return &Error{
			Kind: KindBadCompression,
			Msg: fmt.Sprintf("Expected %s or %s; got %s.",
				record.CompressionNone, record.CompressionGzip, rec.Compression),
		}
	}

	tmpPath, err := storage.ParsePath(rec.TmpRemotePath)
	if err != nil {
		return &Error{Kind: KindStorage, Err: err}
	}
	finalPath, err := storage.ParsePath(rec.FinalRemotePath)
	if err != nil {
		return &Error{Kind: KindStorage, Err: err}
	}

	files, err := ws.Files()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return &Error{Kind: KindStorage, Msg: "scratch directory has no files to upload"}
	}

	plan := stagingPlan(files, tmpPath, finalPath)
	entry := &journal.Entry{
		TaskID:    rec.FinalRemotePath,
		SourceURL: rec.SourceURL,
		TmpPath:   rec.TmpRemotePath,
		FinalPath: rec.FinalRemotePath,
		Status:    journal.StatusStaged,
	}

	// Stage
	stageStart := time.Now()
	m.saveJournal(logger, entry)
	for _, f := range plan {
		err := m.store.PutFile(ctx, f.tmp.Bucket, f.tmp.Key, f.local, storage.PutOptions{
			ContentType: defaultContentType,
		})
		if err != nil {
			return m.failStaged(logger, entry, &Error{
				Kind: KindStorage,
				Err:  fmt.Errorf("failed to stage %s to %s: %w", filepath.Base(f.local), f.tmp, err),
			})
		}
		logger.Debug("Staged file",
			zap.String("file", filepath.Base(f.local)),
			zap.String("tmp_path", f.tmp.String()))
	}
	m.metrics.ObservePhase("stage", time.Since(stageStart))

	// Commit
	commitStart := time.Now()
	for _, f := range plan {
		if err := m.store.MoveObject(ctx, f.tmp, f.final); err != nil {
			return m.failStaged(logger, entry, &Error{
				Kind: KindStorage,
				Err:  fmt.Errorf("failed to commit %s to %s: %w", f.tmp, f.final, err),
			})
		}
	}
	m.metrics.ObservePhase("commit", time.Since(commitStart))

	entry.Status = journal.StatusCommitted
	m.saveJournal(logger, entry)

	logger.Info("Committed transfer", zap.Int("files", len(plan)))
	return nil
}

// scratchRoot resolves where the scratch directory lives. The record's
// ephemeral mount is only honored when configuration says so; by default it
// is carried but unused, like the mount field always was.
func (m *Mapper) scratchRoot(rec record.Record) string {
	if m.cfg.Mapper.UseRecordMount {
		return rec.EphemeralMount
	}
	return m.cfg.Mapper.ScratchRoot
}

// stagingPlan maps local files onto remote destinations. A single file
// lands on the tmp and final keys themselves; multiple files are staged
// under them by name.
func stagingPlan(files []string, tmp, final storage.Path) []stagedFile {
	if len(files) == 1 {
		return []stagedFile{{local: files[0], tmp: tmp, final: final}}
	}

	plan := make([]stagedFile, 0, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		plan = append(plan, stagedFile{local: f, tmp: tmp.Join(name), final: final.Join(name)})
	}

	return plan
}

func (m *Mapper) saveJournal(logger *zap.Logger, entry *journal.Entry) {
	if m.journal == nil {
		return
	}

	if err := m.journal.Save(entry); err != nil {
		logger.Warn("Failed to save journal entry",
			zap.String("task_id", entry.TaskID),
			zap.Error(err))
	}
}

// failStaged records the failure in the journal so gc can find the
// orphaned staging object, then returns the error unchanged.
func (m *Mapper) failStaged(logger *zap.Logger, entry *journal.Entry, err *Error) error {
	entry.Status = journal.StatusFailed
	entry.LastError = err.Error()
	m.saveJournal(logger, entry)
	return err
}
