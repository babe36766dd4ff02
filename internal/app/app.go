package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"pix-go/internal/config"
	"pix-go/internal/encryption"
	"pix-go/internal/index"
	"pix-go/internal/library"
	"pix-go/internal/model"
	"pix-go/internal/payload"
)

// PixApp is the application layer between the CLI and the index service.
// It constructs all dependencies from config, restores the persisted index,
// and manages resource lifecycles on Close.
type PixApp struct {
	cfg      *config.Config
	library  index.Library
	payloads index.PayloadStore
	service  *index.Service
	logger   index.Logger
	logFile  *os.File
}

// NewPixApp creates a fully wired PixApp from the given config.
// operation identifies the CLI command being run (e.g. "BuildFull", "Watch").
// prompt handles passphrase entry for a protected payload key; it may be nil
// for commands that never touch an encrypted payload.
// The caller must call Close when done.
func NewPixApp(cfg *config.Config, operation string, prompt encryption.PassphraseFunc) (*PixApp, error) {
	lib, err := library.NewLibraryFromConfig(cfg.Library)
	if err != nil {
		return nil, fmt.Errorf("creating library: %w", err)
	}

	codec, err := encryption.NewCodecFromConfig(cfg.Encryption, prompt)
	if err != nil {
		return nil, fmt.Errorf("creating payload codec: %w", err)
	}

	payloads, err := payload.NewPayloadStoreFromConfig(cfg.Payload, codec)
	if err != nil {
		return nil, fmt.Errorf("creating payload store: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		closePayloads(payloads)
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger.With("op", operation)}

	svc := index.NewService(lib, payloads, logger, index.RealClock{}, index.Options{
		ChunkSize:       cfg.Index.ChunkSize,
		RebuildInterval: time.Duration(cfg.Index.RebuildIntervalDays) * 24 * time.Hour,
		PersistDelay:    time.Duration(cfg.Index.PersistDelayMS) * time.Millisecond,
	})
	svc.LoadPayload()

	return &PixApp{
		cfg:      cfg,
		library:  lib,
		payloads: payloads,
		service:  svc,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// IsReady reports whether the index has completed at least one full build.
func (a *PixApp) IsReady() bool { return a.service.IsReady() }

// BuildFull runs a full scan of the library and replaces the index.
// Returns the number of entries indexed.
func (a *PixApp) BuildFull(ctx context.Context) (int, error) {
	return a.service.BuildFull(ctx)
}

// RebuildIfDue rebuilds only when the last full build is older than the
// configured interval. Returns whether a rebuild ran.
func (a *PixApp) RebuildIfDue(ctx context.Context) (bool, error) {
	return a.service.RebuildIfDue(ctx)
}

// RebuildNow unconditionally rebuilds the index.
func (a *PixApp) RebuildNow(ctx context.Context) (int, error) {
	return a.service.RebuildNow(ctx)
}

// TopItems returns the best-scoring assets matching the filter.
func (a *PixApp) TopItems(f index.Filter, limit int) []model.AssetRef {
	return a.service.TopItems(f, limit)
}

// AvailableYears returns distinct creation years, newest first.
func (a *PixApp) AvailableYears() []int { return a.service.AvailableYears() }

// AvailablePlaces returns distinct place labels, ascending.
func (a *PixApp) AvailablePlaces() []string { return a.service.AvailablePlaces() }

// AvailablePeople returns distinct person labels, ascending.
func (a *PixApp) AvailablePeople() []string { return a.service.AvailablePeople() }

// Stats reports readiness, entry count, and last full build time.
func (a *PixApp) Stats() (bool, int, time.Time) { return a.service.Stats() }

// Watch follows the library for changes until the context is cancelled,
// applying incremental patches and periodic drift-correction rebuilds.
// Requires a filesystem library.
func (a *PixApp) Watch(ctx context.Context) error {
	fsLib, ok := a.library.(*library.FSLibrary)
	if !ok {
		return fmt.Errorf("watching requires a filesystem library")
	}

	debounce := time.Duration(a.cfg.Index.WatchDebounceMS) * time.Millisecond
	watcher, err := library.NewWatcher(fsLib, debounce, a.logger)
	if err != nil {
		return fmt.Errorf("creating library watcher: %w", err)
	}

	go watcher.Run(ctx)
	a.logger.Info("watching library", "root", fsLib.Root())
	a.service.Run(ctx, watcher.Changes())
	return nil
}

// Close releases the payload store and the log file.
func (a *PixApp) Close() error {
	err := closePayloads(a.payloads)
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}

// closePayloads closes payload stores that hold resources (e.g. SQLite).
func closePayloads(p index.PayloadStore) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
