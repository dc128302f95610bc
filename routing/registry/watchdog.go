package registry

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/geosrv/live-dataset-routing-go/routing"
	"github.com/geosrv/live-dataset-routing-go/routing/geodata"
)

const (
	defaultPollInterval = 5 * time.Second

	logMsgPollFailed     = "polling snapshot registry failed"
	logMsgSnapshotLoaded = "snapshot loaded from registry"
)

// Watchdog implements routing.SnapshotWatchdog on top of the snapshot
// registry. A background poller keeps the newest published version in an
// atomic, which is what makes HasNewRegion cheap enough for the query hot
// path; MaybeLoadNewRegion re-reads the registry and loads the snapshot file.
type Watchdog struct {
	registry     Registry
	regionName   string
	pollInterval time.Duration
	logger       routing.Logger

	published atomic.Uint64 // newest version seen by the poller
	loaded    atomic.Uint64 // version of the snapshot last handed out
}

// WatchdogOption defines a functional option for configuring the Watchdog.
type WatchdogOption func(*Watchdog)

// WithPollInterval sets how often the watchdog polls the registry.
func WithPollInterval(interval time.Duration) WatchdogOption {
	return func(w *Watchdog) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithWatchdogLogger sets the logger for the Watchdog.
func WithWatchdogLogger(logger routing.Logger) WatchdogOption {
	return func(w *Watchdog) {
		w.logger = logger
	}
}

// NewWatchdog creates a watchdog for one region. Call Start to begin polling;
// without it, new snapshots are only discovered by explicit MaybeLoadNewRegion calls.
func NewWatchdog(registry Registry, regionName string, options ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		registry:     registry,
		regionName:   regionName,
		pollInterval: defaultPollInterval,
	}

	for _, option := range options {
		option(w)
	}

	return w
}

// Start launches the background poller. It stops when ctx is done.
func (w *Watchdog) Start(ctx context.Context) {
	go w.poll(ctx)
}

func (w *Watchdog) poll(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			record, latestErr := w.registry.Latest(ctx, w.regionName)
			if latestErr != nil {
				if !errors.Is(latestErr, ErrNoSnapshotForRegion) && w.logger != nil {
					w.logger.Warn(logMsgPollFailed, logAttrError, latestErr.Error())
				}

				continue
			}

			w.published.Store(record.Version)
		}
	}
}

// HasNewRegion reports whether the registry carries a snapshot newer than the
// one last loaded through this watchdog. Cheap and non-blocking.
func (w *Watchdog) HasNewRegion() bool {
	return w.published.Load() > w.loaded.Load()
}

// MaybeLoadNewRegion loads the newest published snapshot for the region.
// It returns nil, nil when no strictly newer snapshot exists anymore, i.e.
// this loader was overtaken between the HasNewRegion check and now.
func (w *Watchdog) MaybeLoadNewRegion(ctx context.Context) (*routing.DatasetHandle, error) {
	record, latestErr := w.registry.Latest(ctx, w.regionName)
	if latestErr != nil {
		if errors.Is(latestErr, ErrNoSnapshotForRegion) && w.loaded.Load() > 0 {
			return nil, nil
		}

		return nil, latestErr
	}

	if loaded := w.loaded.Load(); loaded > 0 && record.Version <= loaded {
		return nil, nil
	}

	graph, loadErr := geodata.LoadSnapshotFile(record.Path)
	if loadErr != nil {
		return nil, loadErr
	}

	handle, handleErr := routing.NewDatasetHandle(graph)
	if handleErr != nil {
		return nil, handleErr
	}

	w.loaded.Store(record.Version)
	w.published.Store(record.Version)

	if w.logger != nil {
		w.logger.Info(logMsgSnapshotLoaded,
			logAttrRegion, record.RegionName,
			logAttrVersion, record.Version,
			logAttrPath, record.Path,
		)
	}

	return handle, nil
}

// Ensure Watchdog implements the watchdog contract.
var _ routing.SnapshotWatchdog = (*Watchdog)(nil)
