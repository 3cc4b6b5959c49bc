// Package scriptwatcher reloads a simulation script when its file changes.
// A successful reload is handed to a callback, which restarts the
// simulation; the restart is a scene boundary for every watch.
package scriptwatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/simhost"
)

// ReloadFunc receives a freshly parsed script.
type ReloadFunc func(ctx context.Context, script *simhost.Script)

// Plugin watches one script file.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	logger        log.Logger
	onReload      ReloadFunc

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a watcher for the script at path.
func New(path string, onReload ReloadFunc, cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	return &Plugin{
		path:          path,
		debounceDelay: cfg.DebounceDelay,
		logger:        cfg.Logger,
		onReload:      onReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "scriptwatcher"
}

// Start begins watching. The script's directory is watched rather than the
// file so that editors which replace the file on save are still seen.
func (p *Plugin) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Info("script watcher started", log.String("script", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and any pending reload.
func (p *Plugin) Shutdown(context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	base := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("script watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		p.reload(ctx)
	})
}

func (p *Plugin) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	script, err := simhost.LoadScript(p.path)
	if err != nil {
		// Keep the running simulation; the next save gets another chance.
		p.logger.Warn("script reload failed", log.String("script", p.path), log.Err(err))
		return
	}
	p.logger.Info("script reloaded", log.String("script", p.path))
	p.onReload(ctx, script)
}
