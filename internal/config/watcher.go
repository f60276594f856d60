package config

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk and publishes the
// result. Editors often write a file in several steps, so reloads are
// debounced and identical configs are not republished.
type Watcher struct {
	path     string
	log      zerolog.Logger
	debounce time.Duration

	mu   sync.Mutex
	last *Config
}

// NewWatcher returns a watcher for path. current is the config already in use;
// reloads equal to it are skipped.
func NewWatcher(path string, current *Config, log zerolog.Logger) *Watcher {
	return &Watcher{path: path, log: log, debounce: defaultDebounce, last: current}
}

// SetDebounce changes how long the watcher waits after the last file event
// before reloading.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Watch starts watching and returns a channel of reloaded configs. Only the
// newest config is kept if the reader falls behind. The channel is closed when
// ctx is done.
func (w *Watcher) Watch(ctx context.Context) (<-chan *Config, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	// Watch the directory: editors replace the file, which drops a file watch.
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("config watch %s: %w", dir, err)
	}
	w.log.Debug().Str("path", w.path).Msg("config watcher started")

	out := make(chan *Config, 1)
	reload := make(chan struct{}, 1)
	go w.loop(ctx, fw, reload)
	go w.publish(ctx, reload, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, reload chan<- struct{}) {
	defer fw.Close()
	file := filepath.Base(w.path)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	fire := func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, fire)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Str("path", w.path).Msg("config watch error")
		}
	}
}

func (w *Watcher) publish(ctx context.Context, reload <-chan struct{}, out chan *Config) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
		}

		cfg, err := Load(w.path)
		if err != nil {
			w.log.Warn().Err(err).Str("path", w.path).Msg("config reload rejected")
			continue
		}
		w.mu.Lock()
		unchanged := reflect.DeepEqual(cfg, w.last)
		if !unchanged {
			w.last = cfg
		}
		w.mu.Unlock()
		if unchanged {
			w.log.Debug().Str("path", w.path).Msg("config unchanged")
			continue
		}

		// Replace a pending config nobody read yet.
		select {
		case <-out:
		default:
		}
		select {
		case out <- cfg:
			w.log.Info().Str("path", w.path).Msg("config reloaded")
		case <-ctx.Done():
			return
		}
	}
}
