package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tilewm/tilewm/internal/util"
)

// debounceWindow matches the teacher's reload debounce: editors commonly
// emit a burst of writes/renames for one save.
const debounceWindow = 250 * time.Millisecond

// Watch observes path for writes and signals reloadRequests, debounced,
// until stop is closed. It never touches the decoded Config itself —
// the caller re-Loads and re-applies on each signal.
func Watch(path string, logger *util.Logger, reloadRequests chan<- string, stop <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		watcher.Close()
		return err
	}

	go watchLoop(watcher, target, logger, reloadRequests, stop)
	return nil
}

func watchLoop(watcher *fsnotify.Watcher, target string, logger *util.Logger, reloadRequests chan<- string, stop <-chan struct{}) {
	defer watcher.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(debounceWindow)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case reloadRequests <- "config file updated":
			default:
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if logger != nil {
				logger.Warnf("config watcher error: %v", err)
			}
		}
	}
}
