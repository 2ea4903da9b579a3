package settings

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder serves the current settings snapshot and hot-reloads it when the
// backing file changes. Readers always see a complete, validated snapshot;
// a broken rewrite keeps the previous one.
type Holder struct {
	path    string
	logger  zerolog.Logger
	current atomic.Pointer[Settings]
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Watch loads path and starts watching it for changes.
func Watch(path string, logger zerolog.Logger) (*Holder, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files, which drops a watch on
	// the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	h := &Holder{
		path:    path,
		logger:  logger,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	h.current.Store(&s)
	go h.watch()
	return h, nil
}

// Current returns the active snapshot.
func (h *Holder) Current() Settings { return *h.current.Load() }

// Close stops watching.
func (h *Holder) Close() error {
	close(h.done)
	return h.watcher.Close()
}

func (h *Holder) watch() {
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(h.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.reload()
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("path", h.path).Msg("settings watch error")
		}
	}
}

func (h *Holder) reload() {
	s, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).
			Msg("settings reload failed, keeping previous snapshot")
		return
	}
	h.current.Store(&s)
	h.logger.Info().Str("path", h.path).Msg("settings reloaded")
}
