package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before the
// callback fires. Model exports are written in several chunks, so it is
// longer than an editor save.
const DefaultDebounce = 500 * time.Millisecond

var errNotDir = errors.New("not a directory")

// relevantOps are the operations that change the set of models on disk.
// A rename reports the old name, which the importer treats as a removal.
const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// fileWatcher implements FileWatcher on top of fsnotify. Changed model paths
// are collected in a pending set and delivered as one batch once no event
// arrived for the debounce period. Callbacks always run on the watch
// goroutine, one batch at a time.
type fileWatcher struct {
	fsw        *fsnotify.Watcher
	extensions map[string]bool // lower-cased, with leading dot
	skipDirs   map[string]bool // base names never descended into
	debounce   time.Duration

	callback func(files []string)
	cancel   context.CancelFunc
	resumeCh chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	pending map[string]struct{}
	paused  bool
}

// NewFileWatcher creates a watcher over the model directories dirs, watched
// recursively. Only files whose extension is in extensions (compared
// case-insensitively, e.g. ".ifc") are reported; directories named in
// skipDirs are not descended into.
func NewFileWatcher(dirs []string, extensions []string, skipDirs ...string) (FileWatcher, error) {
	fw, err := newFileWatcher(dirs, extensions, skipDirs, DefaultDebounce)
	if err != nil {
		return nil, err
	}
	return fw, nil
}

func newFileWatcher(dirs, extensions, skipDirs []string, debounce time.Duration) (*fileWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		fsw:        fsw,
		extensions: toSet(extensions, strings.ToLower),
		skipDirs:   toSet(skipDirs, nil),
		debounce:   debounce,
		resumeCh:   make(chan struct{}, 1),
		doneCh:     make(chan struct{}),
		pending:    make(map[string]struct{}),
	}

	for _, dir := range dirs {
		if err := fw.watchTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fw, nil
}

func toSet(values []string, normalize func(string) string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if normalize != nil {
			v = normalize(v)
		}
		set[v] = true
	}
	return set
}

// Start begins delivering batches of changed files to callback.
// A nil callback leaves the watcher idle.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	ctx, fw.cancel = context.WithCancel(ctx)
	go fw.loop(ctx)
	return nil
}

// Stop ends the watch loop and releases the fsnotify watcher.
// Safe to call more than once and before Start.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		err = fw.fsw.Close()
	})
	return err
}

// Pause holds back callbacks; changes keep accumulating.
func (fw *fileWatcher) Pause() {
	fw.mu.Lock()
	fw.paused = true
	fw.mu.Unlock()
}

// Resume re-enables callbacks and delivers what accumulated while paused.
func (fw *fileWatcher) Resume() {
	fw.mu.Lock()
	wasPaused := fw.paused
	fw.paused = false
	fw.mu.Unlock()

	if wasPaused {
		select {
		case fw.resumeCh <- struct{}{}:
		default:
		}
	}
}

func (fw *fileWatcher) loop(ctx context.Context) {
	defer close(fw.doneCh)

	timer := time.NewTimer(fw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				fw.watchIfDir(event.Name)
			}
			if !fw.relevant(event) {
				continue
			}

			fw.mu.Lock()
			fw.pending[event.Name] = struct{}{}
			fw.mu.Unlock()
			timer.Reset(fw.debounce)

		case <-timer.C:
			fw.flush()

		case <-fw.resumeCh:
			fw.flush()

		case err, ok := <-fw.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("File watcher error: %v", err)
		}
	}
}

// flush hands the pending batch to the callback unless paused.
func (fw *fileWatcher) flush() {
	fw.mu.Lock()
	if fw.paused || len(fw.pending) == 0 {
		fw.mu.Unlock()
		return
	}
	files := make([]string, 0, len(fw.pending))
	for f := range fw.pending {
		files = append(files, f)
	}
	fw.pending = make(map[string]struct{})
	fw.mu.Unlock()

	sort.Strings(files)
	fw.callback(files)
}

func (fw *fileWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&relevantOps == 0 {
		return false
	}
	return fw.extensions[strings.ToLower(filepath.Ext(event.Name))]
}

// watchIfDir starts watching a directory created after Start, e.g. an
// unpacked model folder.
func (fw *fileWatcher) watchIfDir(path string) {
	if fw.skipDirs[filepath.Base(path)] {
		return
	}
	err := fw.watchTree(path)
	// most creates are plain files, some are gone again already
	if err != nil && !errors.Is(err, errNotDir) && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to watch new directory %s: %v", path, err)
	}
}

// watchTree adds root and every directory below it, except skipped ones.
// Only an unreadable root is an error.
func (fw *fileWatcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			if path == root {
				return &fs.PathError{Op: "watch", Path: root, Err: errNotDir}
			}
			return nil
		}
		if path != root && fw.skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fw.fsw.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
