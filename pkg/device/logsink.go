package device

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// LogSink is the dry-run NoteSink. It writes one line per action to W,
// or logs at info level when W is nil.
type LogSink struct {
	W   io.Writer
	Log *slog.Logger

	mu sync.Mutex
}

// Press prints "Playing note <key>".
func (s *LogSink) Press(key int) {
	s.emit("Playing note", key)
}

// Release prints "Releasing note <key>".
func (s *LogSink) Release(key int) {
	s.emit("Releasing note", key)
}

func (s *LogSink) emit(msg string, key int) {
	if s.W == nil {
		log := s.Log
		if log == nil {
			log = slog.Default()
		}
		log.Info(msg, "key", key)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.W, "%s %d\n", msg, key)
}
