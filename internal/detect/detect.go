// Package detect finds project descriptors on disk, both by scanning and by
// watching a directory for new ones.
package detect

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"enginectl/internal/engine"
)

// Directories the engine generates; never contain a project descriptor.
var skipDirs = map[string]bool{
	"Intermediate":     true,
	"Binaries":         true,
	"Saved":            true,
	"DerivedDataCache": true,
}

// Scan walks root and returns every project descriptor found.
func Scan(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			name := d.Name()
			if skipDirs[name] || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), engine.ProjectExt) {
			found = append(found, path)
		}
		return nil
	})
	return found, err
}

// Watcher reports project descriptors appearing in a directory.
type Watcher struct {
	fsw  *fsnotify.Watcher
	log  *slog.Logger
	done chan struct{}
}

func Watch(dir string, log *slog.Logger, onFound func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, log: log, done: make(chan struct{})}
	go w.loop(onFound)
	return w, nil
}

func (w *Watcher) loop(onFound func(string)) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) && strings.EqualFold(filepath.Ext(ev.Name), engine.ProjectExt) {
				w.log.Info("project file detected", "path", ev.Name)
				onFound(ev.Name)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
