package journal

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

const (
	DefaultBufferSize = 1024
	DefaultMaxSizeMB  = 25
	fileName          = "decisions.jsonl"
	closeTimeout      = 5 * time.Second
)

var (
	ErrClosed     = errors.New("journal: writer is closed")
	ErrBufferFull = errors.New("journal: buffer full")
)

// Writer appends placement decisions as JSON lines to date-organized files
// (<dir>/<yyyy-mm-dd>/decisions.jsonl). Writes are queued and flushed by a
// single goroutine so observers never block the engine.
type Writer struct {
	baseDir   string
	maxSizeMB int
	writeCh   chan tabs.Decision
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
}

var _ tabs.Observer = (*Writer)(nil)

func NewWriter(baseDir string, bufferSize, maxSizeMB int) *Writer {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan tabs.Decision, bufferSize),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Write queues a decision. It never blocks.
func (w *Writer) Write(d tabs.Decision) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.writeCh <- d:
		return nil
	default:
		slog.Warn("journal buffer full, dropping decision", "decision_id", d.ID)
		return ErrBufferFull
	}
}

func (w *Writer) ObserveDecision(d tabs.Decision) {
	_ = w.Write(d)
}

// Close stops the writer after flushing what is already queued.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()

	timeout := time.After(closeTimeout)
drain:
	for {
		select {
		case d := <-w.writeCh:
			w.writeRecord(d)
		case <-timeout:
			slog.Warn("journal close timeout, some decisions may be lost")
			break drain
		default:
			break drain
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		err := w.logger.Close()
		w.logger = nil
		return err
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case d := <-w.writeCh:
			w.writeRecord(d)
		case <-w.done:
			return
		}
	}
}

func (w *Writer) writeRecord(d tabs.Decision) {
	data, err := json.Marshal(d)
	if err != nil {
		slog.Error("journal marshal failed", "error", err, "decision_id", d.ID)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	date := at.UTC().Format("2006-01-02")
	if date != w.currentDate || w.logger == nil {
		if !w.rotateForDate(date) {
			return
		}
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("journal write failed", "error", err, "decision_id", d.ID)
	}
}

func (w *Writer) rotateForDate(date string) bool {
	if w.logger != nil {
		w.logger.Close()
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("journal create dir failed", "error", err, "dir", dir)
		return false
	}

	filename := filepath.Join(dir, fileName)
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 10,
		MaxAge:     30,
		Compress:   true,
	}
	w.currentDate = date
	slog.Info("journal opened", "file", filename)
	return true
}

// Path returns the journal file for the given day.
func (w *Writer) Path(day time.Time) string {
	return filepath.Join(w.baseDir, day.UTC().Format("2006-01-02"), fileName)
}
