// Package app wires configuration into the transfer pipeline and the gc
// sweeper.
package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tomwhite/eggo/internal/config"
	"github.com/tomwhite/eggo/internal/fetch"
	"github.com/tomwhite/eggo/internal/journal"
	"github.com/tomwhite/eggo/internal/metrics"
	"github.com/tomwhite/eggo/internal/storage"
	"github.com/tomwhite/eggo/internal/transfer"
)

// maxRecordLine bounds the input line length; records are six short tokens.
const maxRecordLine = 1024 * 1024

// App holds the wired components for one invocation.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   storage.Client
	journal journal.Store
	metrics *metrics.Collector
	mapper  *transfer.Mapper
}

// New creates the application from loaded configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	store, err := storage.NewMinIOClient(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Secure:    cfg.Storage.Secure,
		Region:    cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var journalStore journal.Store
	if cfg.Mapper.Journal != "" {
		journalStore, err = journal.NewSQLiteStore(cfg.Mapper.Journal)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
	}

	metricsCollector := metrics.New(cfg.Mapper.PushGateway)
	fetcher := fetch.New(time.Duration(cfg.Mapper.FetchTimeoutSeconds) * time.Second)

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		journal: journalStore,
		metrics: metricsCollector,
		mapper:  transfer.NewMapper(cfg, store, fetcher, journalStore, metricsCollector, logger),
	}, nil
}

// RunMapper reads one transfer record from input and executes it. The
// framework invokes the task once per record, so only the first non-empty
// line is consumed.
func (a *App) RunMapper(ctx context.Context, input io.Reader) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), maxRecordLine)

	var line string
	for scanner.Scan() {
		if text := strings.TrimSpace(scanner.Text()); text != "" {
			line = text
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return &transfer.Error{Kind: transfer.KindBadRecord, Err: fmt.Errorf("failed to read input: %w", err)}
	}
	if line == "" {
		return &transfer.Error{Kind: transfer.KindBadRecord, Msg: "no transfer record on standard input"}
	}

	return a.mapper.Run(ctx, line)
}

// GC removes staging objects left behind by tasks that died between the
// stage and commit steps. Only journal entries older than age are swept, so
// a task still mid-flight is never raced.
func (a *App) GC(ctx context.Context, age time.Duration) error {
	if a.journal == nil {
		return fmt.Errorf("gc requires a journal; set mapper.journal or --journal")
	}

	entries, err := a.journal.ListStagedBefore(time.Now().Add(-age))
	if err != nil {
		return fmt.Errorf("failed to list orphaned transfers: %w", err)
	}

	a.logger.Info("Sweeping orphaned staging objects", zap.Int("candidates", len(entries)))

	for _, entry := range entries {
		if err := a.sweep(ctx, entry); err != nil {
			a.logger.Warn("Failed to sweep staging path",
				zap.String("tmp_path", entry.TmpPath),
				zap.Error(err))
			continue
		}

		entry.Status = journal.StatusSwept
		if err := a.journal.Save(entry); err != nil {
			a.logger.Warn("Failed to update journal entry",
				zap.String("task_id", entry.TaskID),
				zap.Error(err))
		}
	}

	return nil
}

// sweep removes the staging object at the entry's tmp path, plus anything
// staged under it by a multi-file transfer.
func (a *App) sweep(ctx context.Context, entry *journal.Entry) error {
	tmp, err := storage.ParsePath(entry.TmpPath)
	if err != nil {
		return err
	}

	removed := 0
	if _, err := a.store.StatObject(ctx, tmp.Bucket, tmp.Key); err == nil {
		if err := a.store.RemoveObject(ctx, tmp.Bucket, tmp.Key); err != nil {
			return err
		}
		removed++
	}

	objCh, errCh := a.store.ListObjects(ctx, tmp.Bucket, tmp.Key+"/")
	for {
		select {
		case obj, ok := <-objCh:
			if !ok {
				a.logger.Info("Swept staging path",
					zap.String("tmp_path", entry.TmpPath),
					zap.Int("objects", removed))
				return nil
			}
			if err := a.store.RemoveObject(ctx, tmp.Bucket, obj.Key); err != nil {
				return err
			}
			removed++

		case err := <-errCh:
			if err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close cleans up resources
func (a *App) Close() error {
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}
