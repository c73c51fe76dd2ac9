package dataset

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change reports that a watched manifest or data file was written, created
// or removed.
type Change struct {
	File string // Absolute path
}

// Watcher monitors the manifest and every data file it names. Changes are
// debounced so that an editor's write-rename dance yields one event. When
// the manifest changes the tracked set is re-read, so newly listed sources
// are watched too.
type Watcher struct {
	Changes <-chan Change // Read-only external channel

	manifest string
	files    map[string]bool // owned by loop once started
	dirs     map[string]bool
	changes  chan Change // Internal write channel
	done     chan struct{}
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for manifestPath and the sources it lists.
// An unreadable manifest still gets watched on its own, so fixing it is
// noticed.
func NewWatcher(manifestPath string) (*Watcher, error) {
	abs, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, err
	}
	files, err := trackedFiles(abs)
	if err != nil {
		files = map[string]bool{abs: true}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan Change, 16)
	return &Watcher{
		Changes:  ch,
		manifest: abs,
		files:    files,
		dirs:     make(map[string]bool),
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
	}, nil
}

// Start begins watching the directories holding the tracked files.
func (w *Watcher) Start() error {
	for f := range w.files {
		d := filepath.Dir(f)
		if w.dirs[d] {
			continue
		}
		if err := w.watcher.Add(d); err != nil {
			return err
		}
		w.dirs[d] = true
	}
	go w.loop()
	return nil
}

// refresh re-reads the manifest's sources and watches any directory not
// yet watched. An unreadable manifest keeps the current set, since editors
// often leave it briefly empty mid-save.
func (w *Watcher) refresh() {
	files, err := trackedFiles(w.manifest)
	if err != nil {
		return
	}
	w.files = files
	for f := range files {
		d := filepath.Dir(f)
		if w.dirs[d] {
			continue
		}
		// A directory that does not exist yet is retried on the next
		// manifest change.
		if err := w.watcher.Add(d); err == nil {
			w.dirs[d] = true
		}
	}
}

// trackedFiles returns the manifest and every source it names.
func trackedFiles(manifest string) (map[string]bool, error) {
	m, err := ReadManifest(manifest)
	if err != nil {
		return nil, err
	}
	files := map[string]bool{manifest: true}
	for _, src := range m.Sources(filepath.Dir(manifest)) {
		files[filepath.Clean(src)] = true
	}
	return files, nil
}

// Stop closes the watcher and its channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done // Wait for loop to exit
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	// Debounce: track last event time per file.
	const debounce = 100 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				for file := range pending {
					w.changes <- Change{File: file}
				}
				return
			}
			name := filepath.Clean(event.Name)
			if name == w.manifest {
				w.refresh()
			}
			if !w.files[name] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				pending[name] = time.Now()
			}

		case <-ticker.C:
			now := time.Now()
			for file, t := range pending {
				if now.Sub(t) >= debounce {
					w.changes <- Change{File: file}
					delete(pending, file)
				}
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal.
		}
	}
}
