// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

const (
	maxLineBytes    = 16 * 1024
	maxPartialBytes = 64 * 1024
)

// LineWriter is an io.Writer that frames arbitrary byte chunks into lines and
// emits each complete line as one log entry. Partial lines are buffered until
// the next newline or Flush. Oversized lines are truncated.
type LineWriter struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	level   zerolog.Level
	partial bytes.Buffer
}

// NewLineWriter returns a LineWriter logging at level through logger.
func NewLineWriter(logger zerolog.Logger, level zerolog.Level) *LineWriter {
	return &LineWriter{logger: logger, level: level}
}

// Write implements io.Writer. It never returns an error.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx < 0 {
			if w.partial.Len()+len(p) > maxPartialBytes {
				w.emit(w.partial.Bytes())
				w.partial.Reset()
			}
			w.partial.Write(p)
			break
		}
		if w.partial.Len() > 0 {
			w.partial.Write(p[:idx])
			w.emit(w.partial.Bytes())
			w.partial.Reset()
		} else {
			w.emit(p[:idx])
		}
		p = p[idx+1:]
	}
	return n, nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.partial.Len() > 0 {
		w.emit(w.partial.Bytes())
		w.partial.Reset()
	}
}

func (w *LineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	truncated := false
	if len(line) > maxLineBytes {
		line = line[:maxLineBytes]
		truncated = true
	}
	evt := w.logger.WithLevel(w.level)
	if truncated {
		evt = evt.Bool("truncated", true)
	}
	evt.Msg(string(line))
}
