// Package logging sets up the run's structured logger. One slog logger
// serves the whole pipeline; its sink starts as the console and gains
// the migration directory's log file once that directory exists, so the
// chronological stream of every tool invocation ends up in both places.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Sink is an io.Writer that fans out to the console and, once attached,
// the run log file. Attaching late is deliberate: a failed preflight
// must not create any output directory.
type Sink struct {
	mu      sync.Mutex
	console io.Writer
	file    io.WriteCloser
}

func NewSink(console io.Writer) *Sink {
	return &Sink{console: console}
}

// AttachFile opens (appending) the run log at path and mirrors all
// subsequent writes into it.
func (s *Sink) AttachFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
	return nil
}

func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.console.Write(p)
	if s.file != nil {
		// Log-file write failures must never abort the pipeline.
		_, _ = s.file.Write(p)
	}
	return n, err
}

// Close closes the attached log file, if any.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// New builds a text-handler logger over w. Verbose enables debug level.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
