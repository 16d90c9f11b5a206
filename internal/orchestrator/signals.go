package orchestrator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Signals lets an operator stop or pause a running orchestration from
// outside the process by dropping a "stop" or "pause" file into the signals
// directory. A filesystem watcher picks signals up immediately; the explicit
// stat in ShouldStop/ShouldPause covers anything the watcher missed.
type Signals struct {
	dir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewSignals creates a signal monitor for the given directory.
// If the watcher cannot be started, the monitor degrades to stat polling.
func NewSignals(dir string) (*Signals, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &Signals{dir: dir, done: make(chan struct{})}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return s, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return s, nil
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

func (s *Signals) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			s.mu.Lock()
			switch filepath.Base(event.Name) {
			case "stop":
				s.stopSignal = true
			case "pause":
				s.pauseSignal = true
			}
			s.mu.Unlock()
		case <-s.watcher.Errors:
			// Ignore errors, keep watching.
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (s *Signals) ShouldStop() bool {
	if _, err := os.Stat(filepath.Join(s.dir, "stop")); err == nil {
		s.mu.Lock()
		s.stopSignal = true
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopSignal
}

// ShouldPause returns true if a pause signal has been received.
func (s *Signals) ShouldPause() bool {
	if _, err := os.Stat(filepath.Join(s.dir, "pause")); err == nil {
		s.mu.Lock()
		s.pauseSignal = true
		s.mu.Unlock()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pauseSignal
}

// SendStop creates a stop signal file.
func (s *Signals) SendStop() error {
	return os.WriteFile(filepath.Join(s.dir, "stop"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (s *Signals) SendPause() error {
	return os.WriteFile(filepath.Join(s.dir, "pause"), []byte(time.Now().Format(time.RFC3339)), 0644)
}

// Clear removes all signal files and resets signal state.
func (s *Signals) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopSignal = false
	s.pauseSignal = false

	os.Remove(filepath.Join(s.dir, "stop"))
	os.Remove(filepath.Join(s.dir, "pause"))
}

// Close shuts down the signal monitor.
func (s *Signals) Close() {
	s.once.Do(func() { close(s.done) })
	if s.watcher != nil {
		s.watcher.Close()
	}
}
