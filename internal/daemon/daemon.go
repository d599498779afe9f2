package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"cardflow/internal/api"
	"cardflow/internal/config"
	"cardflow/internal/editlock"
	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/sequence"
	"cardflow/internal/transition"
	"cardflow/internal/translation"
)

// Daemon owns the long-running cardflow process: the board store, the
// coordination engines, the HTTP API, and the expired-lock sweeper. A flock
// on the data directory enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *kanban.Store

	boards *api.BoardService
	cards  *api.CardService
	locks  *editlock.Manager
	server *apiServer

	lockPath  string
	lock      *flock.Flock
	providers []string

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	BoardCount   int
	Providers    []string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *kanban.Store, registry *translation.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || registry == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, provider registry, and logger")
	}

	locks := editlock.NewManager(store, cfg, logger)
	cards := api.NewCardService(
		store,
		sequence.NewAllocator(store, logger),
		locks,
		transition.NewAuthorizer(store, logger),
		translation.NewPipeline(store, registry, logger),
		logger,
	)

	lockPath := filepath.Join(cfg.Paths.DataDir, "cardflowd.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "daemon"),
		store:     store,
		boards:    api.NewBoardService(store, registry.Names()),
		cards:     cards,
		locks:     locks,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		providers: registry.Names(),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the instance lock, starts the API server, and launches the
// lock sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another cardflow daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.server != nil {
		if err := d.server.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}
	go d.sweepLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("cardflow daemon started", "lock", d.lockPath)
	return nil
}

// Stop stops the API server and sweeper and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", "error", err)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("cardflow daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, empty until Start succeeds.
func (d *Daemon) APIAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.addr()
}

// Status reports daemon runtime information.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Providers:    d.providers,
	}
	if boards, err := d.store.ListBoards(ctx); err == nil {
		status.BoardCount = len(boards)
	}
	return status
}

// sweepLoop clears expired edit locks on the configured cadence.
func (d *Daemon) sweepLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Locks.SweepIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.locks.SweepExpired(ctx); err != nil {
				d.logger.Warn("lock sweep failed", "error", err)
			}
		}
	}
}
