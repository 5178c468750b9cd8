package menu

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// LoadFile reads the menu catalog from a JSON file. A missing or malformed
// file yields an empty item list and an error; callers keep running with an
// empty catalog rather than crashing.
func LoadFile(path string) ([]Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read menu file: %w", err)
	}
	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode menu file %s: %w", path, err)
	}
	return items, nil
}

// MustLoadCatalog builds a catalog from the menu file. On failure it logs the
// critical condition and returns an empty catalog.
func MustLoadCatalog(path string) *Catalog {
	items, err := LoadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("menu: load failed, serving empty catalog")
		return NewCatalog(nil)
	}
	log.Info().Int("items", len(items)).Str("path", path).Msg("menu: catalog loaded")
	return NewCatalog(items)
}

// Watcher reloads the catalog when the menu file changes on disk. Each reload
// swaps a fresh snapshot in atomically; a failed reload keeps the previous
// snapshot.
type Watcher struct {
	path    string
	catalog *Catalog
	fw      *fsnotify.Watcher
	done    chan struct{}
}

func NewWatcher(path string, catalog *Catalog) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create menu watcher: %w", err)
	}
	// Watch the directory: editors replace files, which drops a watch on the
	// file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch menu dir: %w", err)
	}
	w := &Watcher{path: path, catalog: catalog, fw: fw, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	base := filepath.Base(w.path)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			items, err := LoadFile(w.path)
			if err != nil {
				log.Error().Err(err).Msg("menu: reload failed, keeping previous snapshot")
				continue
			}
			w.catalog.Swap(items)
			log.Info().Int("items", len(items)).Msg("menu: catalog refreshed")
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("menu: watcher error")
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
