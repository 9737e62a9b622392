package config

import (
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadQuiet is the debounce window: editors often fire several write
// events for one save.
const reloadQuiet = 200 * time.Millisecond

// FlowsWatcher watches the flows file and invokes a callback with the
// reloaded config on each change. A file that fails to parse is logged
// and skipped; the previous config stays in effect.
type FlowsWatcher struct {
	path     string
	onReload func(*FlowsConfig)

	watcher *fsnotify.Watcher
	done    chan struct{}

	mu      sync.Mutex
	pending *time.Timer
}

// WatchFlows starts watching the flows file at path. onReload is called
// from the watcher goroutine with each successfully reloaded config.
func WatchFlows(path string, onReload func(*FlowsConfig)) (*FlowsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files on save
	// and a watch on the old inode goes stale.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	fw := &FlowsWatcher{
		path:     path,
		onReload: onReload,
		watcher:  watcher,
		done:     make(chan struct{}),
	}
	go fw.watch()
	return fw, nil
}

func (fw *FlowsWatcher) watch() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(fw.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fw.scheduleReload()
		case <-fw.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// scheduleReload coalesces bursts of events into one reload.
func (fw *FlowsWatcher) scheduleReload() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.pending != nil {
		fw.pending.Stop()
	}
	fw.pending = time.AfterFunc(reloadQuiet, fw.reload)
}

func (fw *FlowsWatcher) reload() {
	cfg, err := LoadFlowsConfig(fw.path)
	if err != nil {
		log.Printf("[config] flows reload skipped: %v", err)
		return
	}
	log.Printf("[config] flows file reloaded: %d flows", len(cfg.Flows))
	fw.onReload(cfg)
}

// Close stops the watcher.
func (fw *FlowsWatcher) Close() {
	close(fw.done)
	fw.watcher.Close()
	fw.mu.Lock()
	if fw.pending != nil {
		fw.pending.Stop()
	}
	fw.mu.Unlock()
}
