package us

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	triedEmptyFile    = ".tried-empty"
	fetchedFile       = ".fetched"
	lastCompletedFile = ".last-completed"
	windowFile        = ".window"
)

// symbolLog is an append-only, newline-separated set of symbols backed by a
// file. Entries survive a crash once markAll returns.
type symbolLog struct {
	path   string
	set    map[string]struct{}
	file   *os.File
	writer *bufio.Writer
}

func openSymbolLog(path string) (*symbolLog, error) {
	l := &symbolLog{path: path, set: make(map[string]struct{})}
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			if sym := strings.TrimSpace(line); sym != "" {
				l.set[sym] = struct{}{}
			}
		}
	}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *symbolLog) open() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(l.path), err)
	}
	l.file = f
	l.writer = bufio.NewWriter(f)
	return nil
}

func (l *symbolLog) has(sym string) bool {
	_, ok := l.set[sym]
	return ok
}

func (l *symbolLog) markAll(symbols []string) error {
	for _, sym := range symbols {
		if l.has(sym) {
			continue
		}
		l.set[sym] = struct{}{}
		if _, err := l.writer.WriteString(sym + "\n"); err != nil {
			return fmt.Errorf("writing to %s: %w", filepath.Base(l.path), err)
		}
	}
	return l.writer.Flush()
}

func (l *symbolLog) reset() error {
	l.close()
	l.set = make(map[string]struct{})
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", filepath.Base(l.path), err)
	}
	return l.open()
}

func (l *symbolLog) close() error {
	if l.writer != nil {
		l.writer.Flush()
	}
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// progressTracker records which symbols of the current download window were
// written or came back empty, so an interrupted run resumes where it stopped
// and a finished one is a no-op.
type progressTracker struct {
	mu         sync.Mutex
	dir        string // <DataDir>/us/daily
	triedEmpty *symbolLog
	fetched    *symbolLog
}

// newProgressTracker creates a tracker rooted at the given daily directory
// and loads any existing entries.
func newProgressTracker(dir string) (*progressTracker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating daily dir: %w", err)
	}
	empty, err := openSymbolLog(filepath.Join(dir, triedEmptyFile))
	if err != nil {
		return nil, err
	}
	fetched, err := openSymbolLog(filepath.Join(dir, fetchedFile))
	if err != nil {
		empty.close()
		return nil, err
	}
	return &progressTracker{dir: dir, triedEmpty: empty, fetched: fetched}, nil
}

// IsDone reports whether the symbol was already fetched or found empty.
func (p *progressTracker) IsDone(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetched.has(symbol) || p.triedEmpty.has(symbol)
}

// IsTriedEmpty reports whether the symbol returned no bars.
func (p *progressTracker) IsTriedEmpty(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.triedEmpty.has(symbol)
}

// MarkEmpty records a batch of symbols that returned no bars.
func (p *progressTracker) MarkEmpty(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.triedEmpty.markAll(symbols)
}

// MarkFetched records a batch of symbols whose bars were written.
func (p *progressTracker) MarkFetched(symbols []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetched.markAll(symbols)
}

// MarkCompleted writes the window's end date to .last-completed.
func (p *progressTracker) MarkCompleted(date string) error {
	return os.WriteFile(filepath.Join(p.dir, lastCompletedFile), []byte(date), 0o644)
}

// IsCompleted reports whether .last-completed matches the given date.
func (p *progressTracker) IsCompleted(date string) bool {
	return p.LastCompleted() == date
}

// LastCompleted returns the date in .last-completed, or "".
func (p *progressTracker) LastCompleted() string {
	data, err := os.ReadFile(filepath.Join(p.dir, lastCompletedFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Begin starts or resumes the download window identified by key. Entries
// recorded for a different window are stale and are dropped.
func (p *progressTracker) Begin(key string) error {
	path := filepath.Join(p.dir, windowFile)
	if data, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(data)) == key {
		return nil
	}
	if err := p.Reset(); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(key), 0o644)
}

// Reset forgets every recorded symbol.
func (p *progressTracker) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.triedEmpty.reset(); err != nil {
		return err
	}
	return p.fetched.reset()
}

// Close flushes and closes both symbol files.
func (p *progressTracker) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.triedEmpty.close()
	if ferr := p.fetched.close(); err == nil {
		err = ferr
	}
	return err
}
