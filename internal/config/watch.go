package config

import (
	"context"
	"hash/fnv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"schedrun/internal/logging"
)

// Watcher re-reads the config file on change and applies the one
// setting that may move at runtime: the log level. Every other
// difference is logged and ignored; the validated schedule stays
// immutable for the process lifetime.
type Watcher struct {
	path    string
	log     logging.Logger
	onLevel func(level string)

	mu sync.Mutex
	// base is the file-derived config, loaded at construction. Flag
	// overrides live in the caller's merged config and must not enter
	// the comparison, or every unrelated reload would look like a
	// change.
	base     Config
	lastHash uint64
}

func NewWatcher(path string, log logging.Logger, onLevel func(level string)) *Watcher {
	w := &Watcher{
		path:     path,
		log:      log,
		onLevel:  onLevel,
		base:     Default(),
		lastHash: hashFile(path),
	}
	if cur, err := Load(path); err == nil {
		w.base = *cur
	}
	return w
}

// Watch blocks until ctx is done. Watches the directory rather than
// the file itself so editor rename-replace saves are seen.
func (w *Watcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.log.Debug("config watcher started", logging.String("path", w.path))

	// debounce to avoid partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, w.apply)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				reload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.log.Warn("config watch error", logging.Err(err))
			}
		}
	}
}

func (w *Watcher) apply() {
	// Skip redundant reloads when content is unchanged.
	h := hashFile(w.path)
	w.mu.Lock()
	unchanged := h != 0 && h == w.lastHash
	w.lastHash = h
	w.mu.Unlock()
	if unchanged {
		return
	}

	next, err := Load(w.path)
	if err != nil {
		w.log.Warn("config reload failed, keeping current settings", logging.Err(err))
		return
	}
	if err := next.Validate(); err != nil {
		w.log.Warn("config change rejected", logging.Err(err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !strings.EqualFold(next.Logging.Level, w.base.Logging.Level) {
		w.log.Info("log level changed",
			logging.String("from", w.base.Logging.Level), logging.String("to", next.Logging.Level))
		w.base.Logging.Level = next.Logging.Level
		if w.onLevel != nil {
			w.onLevel(next.Logging.Level)
		}
	}

	rest := *next
	rest.Logging.Level = w.base.Logging.Level
	if !reflect.DeepEqual(rest, w.base) {
		w.log.Warn("configuration change requires restart, ignoring", logging.String("path", w.path))
	}
}

func hashFile(path string) uint64 {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
