package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports changes under the images and posts folders of a vault.
// Bursts of filesystem events are coalesced into one notification per
// debounce window.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	changes chan struct{}
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	running bool
	closed  bool
}

// NewWatcher creates a Watcher for the vault at root. It does nothing until
// Start is called.
func NewWatcher(root string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("vault: create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		logger:   logger,
		watcher:  w,
		changes:  make(chan struct{}, 1),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}, nil
}

// Start adds the images folder, the posts folder and every post directory
// to the watch list and begins delivering notifications.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("vault: watcher already running")
	}
	if w.closed {
		return fmt.Errorf("vault: watcher closed")
	}
	if err := w.addDirs(); err != nil {
		w.closed = true
		w.watcher.Close()
		return err
	}

	w.running = true
	w.wg.Add(1)
	go w.loop()
	return nil
}

func (w *Watcher) addDirs() error {
	if err := w.watcher.Add(filepath.Join(w.root, ImagesDir)); err != nil {
		return fmt.Errorf("vault: watch %s: %w", ImagesDir, err)
	}
	postsDir := filepath.Join(w.root, PostsDir)
	if err := w.watcher.Add(postsDir); err != nil {
		return fmt.Errorf("vault: watch %s: %w", PostsDir, err)
	}
	entries, err := os.ReadDir(postsDir)
	if err != nil {
		return fmt.Errorf("vault: list %s: %w", PostsDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addPostDir(filepath.Join(postsDir, e.Name()))
		}
	}
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.changes)
	close(w.errors)
	if err != nil {
		return fmt.Errorf("vault: close watcher: %w", err)
	}
	return nil
}

// Changes receives one value per settled burst of vault changes.
// It is closed by Stop.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors receives watch errors. It is closed by Stop.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

func (w *Watcher) addPostDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("cannot watch post directory", zap.String("path", dir), zap.Error(err))
	}
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			// New post directories need their own watch to see description/text edits.
			if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == filepath.Join(w.root, PostsDir) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addPostDir(ev.Name)
				}
			}
			w.logger.Debug("vault change", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
				// a notification is already pending
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			case <-w.done:
				return
			default:
				w.logger.Warn("dropping watcher error", zap.Error(err))
			}
		}
	}
}
