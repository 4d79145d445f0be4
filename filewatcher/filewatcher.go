/*
Package filewatcher watches a single file on the local filesystem for removal.

A server that listens on a Unix socket has no other way to learn that someone deleted its
socket file: the listener keeps working for connected clients, but no new client can find it.

Usage:
	removed, closer, err := filewatcher.Removed("/tmp/my.sock")
	if err != nil {
		// Do something
	}
	defer closer()

	<-removed // Closed when the file is removed or renamed.
*/
package filewatcher

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	log "github.com/golang/glog"
)

type watch struct {
	path    string
	watcher *fsnotify.Watcher
	removed chan struct{}

	closeOnce sync.Once
	closer    chan struct{}
}

// Removed watches the file at p and closes the returned channel when it is removed or renamed.
// closer stops the watch; the channel is not closed if the file was not removed.
func Removed(p string) (removed chan struct{}, closer func(), err error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, nil, fmt.Errorf("could not make %q absolute: %w", p, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	// A watch on the file itself would go away with its inode, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, nil, fmt.Errorf("could not watch directory of %q: %w", p, err)
	}

	w := &watch{
		path:    abs,
		watcher: watcher,
		removed: make(chan struct{}),
		closer:  make(chan struct{}),
	}
	go w.listen()

	return w.removed, w.close, nil
}

func (w *watch) listen() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				close(w.removed)
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("problem with filewatcher: %s", err)
		case <-w.closer:
			return
		}
	}
}

func (w *watch) close() {
	w.closeOnce.Do(func() {
		close(w.closer)
		w.watcher.Close()
	})
}
