// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// debounceWindow coalesces the burst of filesystem events a single save
// produces (create temp, write, rename) into one reload.
const debounceWindow = 200 * time.Millisecond

// Watcher reloads configuration when the config file changes on disk.
//
// The parent directory is watched rather than the file itself: saves go
// through an atomic rename, which replaces the inode and would silently
// detach a file-level watch.
type Watcher struct {
	path     string
	onChange func(*Config)

	fsw       *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// NewWatcher starts watching the config file at path. Whenever the file is
// written or replaced, the config is reloaded, installed as the global
// config, and passed to onChange. onChange may be nil.
//
// The returned Watcher must be closed with Close to release the underlying
// filesystem watch.
func NewWatcher(path string, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     abs,
		onChange: onChange,
		fsw:      fsw,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			// Restart the debounce window on every relevant event.
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceWindow)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Warning: config watch error: %v\n", err)
		}
	}
}

// relevant reports whether event concerns the watched config file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		// Keep the last good config; a half-edited file should not
		// take the running session down.
		fmt.Fprintf(os.Stderr, "Warning: config reload failed: %v\n", err)
		return
	}

	SetGlobal(cfg)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
