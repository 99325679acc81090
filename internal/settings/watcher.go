package settings

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc re-reads the config source and produces a fresh snapshot.
type ReloadFunc func() (Settings, error)

// debounceDelay coalesces the burst of write events editors and atomic
// renames produce for a single save.
const debounceDelay = 250 * time.Millisecond

// Watch watches the config file and swaps the store's snapshot whenever it
// changes. A reload that fails to parse or validate is logged and the
// previous snapshot stays active. Blocks until ctx is done.
func Watch(ctx context.Context, path string, store *Store, reload ReloadFunc) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: atomic saves replace the inode.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceDelay)
			}

		case <-debounceC:
			next, err := reload()
			if err != nil {
				log.Printf("settings reload failed, keeping previous: %v", err)
				continue
			}
			store.Replace(next)
			log.Printf("settings reloaded from %s", absPath)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("settings watch error: %v", err)
		}
	}
}
