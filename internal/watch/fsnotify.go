// Package watch reports changes to component files below directory trees.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"ccdsync/internal/port"
)

const componentExt = ".cif"

// FSNotifyWatcher implements port.FileWatcher with fsnotify. Directories
// created after Watch is called are picked up as well.
type FSNotifyWatcher struct {
	watcher *fsnotify.Watcher
}

// NewFSNotifyWatcher creates a new file watcher.
func NewFSNotifyWatcher() (port.FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSNotifyWatcher{watcher: w}, nil
}

// Watch adds every directory below dirs and emits events for component files.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dirs ...string) (<-chan port.FileEvent, error) {
	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			return nil, err
		}
	}

	events := make(chan port.FileEvent, 100)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := w.addTree(event.Name); err != nil {
							log.Printf("watch.FSNotifyWatcher: adding %s: %v", event.Name, err)
						}
						continue
					}
				}
				if !strings.EqualFold(filepath.Ext(event.Name), componentExt) {
					continue
				}

				var op port.FileOperation
				switch {
				case event.Has(fsnotify.Create):
					op = port.FileCreated
				case event.Has(fsnotify.Write):
					op = port.FileModified
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					op = port.FileDeleted
				default:
					continue
				}

				select {
				case events <- port.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Printf("watch.FSNotifyWatcher: %v", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return w.watcher.Add(p)
	})
}
