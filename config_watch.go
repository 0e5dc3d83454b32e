package main

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// configDebounce batches the write+rename pair produced by Save and by editors.
const configDebounce = 200 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and calls onChange
// with the new value. Unchanged contents are not reported, and a file that
// does not parse is left alone until it is fixed. The directory is
// watched rather than the file so atomic renames are seen. Watch returns once
// the watcher is installed; the loop exits when ctx is cancelled.
func (c *ConfigService) Watch(ctx context.Context, onChange func(Config)) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	c.logger.Info("watching settings", zap.String("path", c.path))

	last, _ := c.load()
	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(c.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(configDebounce)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				c.logger.Warn("watch error", zap.Error(err))
			case <-pending:
				pending = nil
				next, err := c.load()
				if err != nil {
					c.logger.Warn("settings not reloaded, keeping current", zap.String("path", c.path), zap.Error(err))
					continue
				}
				if reflect.DeepEqual(next, last) {
					continue
				}
				last = next
				c.logger.Info("settings changed, reloading")
				onChange(next)
			}
		}
	}()
	return nil
}
