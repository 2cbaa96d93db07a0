package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/metcalfc/tread/internal/config"
	"github.com/metcalfc/tread/internal/position"
	"github.com/metcalfc/tread/internal/reader"
	"github.com/metcalfc/tread/internal/state"
)

var errNoInput = errors.New("no input provided. Provide a file, pipe text to stdin, or read a book first")

// session is an opened document and where reading should resume.
type session struct {
	doc    *reader.Document
	bookID string
	saved  int
}

// newLogger builds the logger for settings. Without a log file nothing is
// written, since the terminal belongs to the reader.
func newLogger(settings config.Settings) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	if settings.LogFile == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }, nil
	}
	f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})), f.Close, nil
}

// resolveInput picks what to read: the named file, piped stdin, or the
// most recently read book in the library.
func resolveInput(filename string, stdin *os.File, lib *state.Library) (string, bool, error) {
	if filename != "" {
		return filename, false, nil
	}
	if stat, err := stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		return "", true, nil
	}
	if lib != nil {
		for _, b := range lib.List() {
			path, ok := lib.DocumentPath(b.ID)
			if !ok {
				continue
			}
			if _, err := os.Stat(path); err == nil {
				return path, false, nil
			}
		}
	}
	return "", false, errNoInput
}

// openDocument opens filename, or reads r when filename is empty.
func openDocument(filename string, r io.Reader) (*reader.Document, error) {
	if filename == "" {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return reader.NewDocument(data, "stdin"), nil
	}
	doc, err := reader.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	return doc, nil
}

// openSession opens a document and looks up its saved line. Library
// failures are logged and reading continues without saved progress.
func openSession(filename string, r io.Reader, lib *state.Library, fresh bool, logger *slog.Logger) (*session, error) {
	doc, err := openDocument(filename, r)
	if err != nil {
		return nil, err
	}
	logger.Debug("document opened",
		"title", doc.Title,
		"encoding", doc.Encoding,
		"lines", doc.LineCount(),
		"chapters", doc.Chapters.Len(),
	)

	s := &session{doc: doc}
	if filename == "" || lib == nil {
		return s, nil
	}

	id, err := state.ComputeHash(filename)
	if err != nil {
		logger.Warn("hash document", "file", filename, "err", err)
		return s, nil
	}
	s.bookID = id

	path := filename
	if abs, err := filepath.Abs(filename); err == nil {
		path = abs
	}
	if err := lib.Register(id, path, doc.Title, doc.LineCount()); err != nil {
		logger.Warn("register book", "file", filename, "err", err)
	}
	if !fresh {
		s.saved = lib.Position(id)
	}
	return s, nil
}

// reconcilerConfig wires a session to a viewport and the library.
func (s *session) reconcilerConfig(settings config.Settings, lib *state.Library, vp position.Viewport, logger *slog.Logger) position.Config {
	cfg := position.Config{
		BookID:        s.bookID,
		LineCount:     s.doc.LineCount(),
		Chapters:      s.doc.Chapters,
		Viewport:      vp,
		Logger:        logger,
		RetryDelay:    settings.RetryDelay,
		RetryAttempts: settings.RetryAttempts,
		Debounce:      settings.Debounce,
		SettleDelay:   settings.SettleDelay,
	}
	if lib != nil {
		cfg.Progress = lib
	}
	return cfg
}

// openLibrary opens the library, logging instead of failing when the
// state directory is unusable.
func openLibrary(settings config.Settings, logger *slog.Logger) *state.Library {
	lib, err := state.NewLibrary(settings.StateDir, logger)
	if err != nil {
		logger.Warn("library unavailable, progress will not be saved", "err", err)
		return nil
	}
	return lib
}
