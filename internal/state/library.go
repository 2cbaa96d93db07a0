// Package state keeps the reading library: which documents have been
// opened and the line each was left at.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	libraryFileName = "library.json"
	hashBytes       = 8192 // First 8KB for content hash
)

// Book is the saved record for one document.
type Book struct {
	ID        string    `json:"-"`
	Path      string    `json:"path,omitempty"`
	Title     string    `json:"title,omitempty"`
	Lines     int       `json:"lines,omitempty"`
	Line      int       `json:"line"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Library manages persistent reading progress keyed by book id.
type Library struct {
	path string
	log  *slog.Logger
	data map[string]Book
	mu   sync.RWMutex
	now  func() time.Time
}

// NewLibrary creates or loads the library in dir. An empty dir uses
// DefaultDir.
func NewLibrary(dir string, logger *slog.Logger) (*Library, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	lib := &Library{
		path: filepath.Join(dir, libraryFileName),
		log:  logger,
		data: make(map[string]Book),
		now:  time.Now,
	}
	if err := lib.load(); err != nil {
		// Non-fatal - start with an empty library
		lib.log.Warn("library unreadable, starting empty", "path", lib.path, "err", err)
		lib.data = make(map[string]Book)
	}
	return lib, nil
}

// DefaultDir returns XDG_STATE_HOME/tread or ~/.local/state/tread
func DefaultDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "tread")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "tread")
}

// ComputeHash generates the book id from the first 8KB of content
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

// Register records where a book lives and how long it is. A saved line
// is kept.
func (l *Library) Register(id, path, title string, lines int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.data[id]
	b.Path = path
	b.Title = title
	b.Lines = lines
	b.UpdatedAt = l.now()
	l.data[id] = b
	return l.save()
}

// DocumentPath returns the last known path of a book.
func (l *Library) DocumentPath(id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.data[id]
	if !ok || b.Path == "" {
		return "", false
	}
	return b.Path, true
}

// Position returns the saved line for a book, or 0 if not found
func (l *Library) Position(id string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.data[id].Line
}

// UpdateProgress saves the reading line for a book.
func (l *Library) UpdateProgress(id string, line int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.data[id]
	b.Line = line
	b.UpdatedAt = l.now()
	l.data[id] = b
	l.log.Debug("progress saved", "book", id, "line", line)
	return l.save()
}

// Get returns the record for a book.
func (l *Library) Get(id string) (Book, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.data[id]
	b.ID = id
	return b, ok
}

// List returns every book, most recently read first.
func (l *Library) List() []Book {
	l.mu.RLock()
	defer l.mu.RUnlock()
	books := make([]Book, 0, len(l.data))
	for id, b := range l.data {
		b.ID = id
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool {
		if !books[i].UpdatedAt.Equal(books[j].UpdatedAt) {
			return books[i].UpdatedAt.After(books[j].UpdatedAt)
		}
		return books[i].ID < books[j].ID
	})
	return books
}

// Clear removes a book from the library
func (l *Library) Clear(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, id)
	return l.save()
}

func (l *Library) load() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &l.data)
}

func (l *Library) save() error {
	data, err := json.MarshalIndent(l.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}
