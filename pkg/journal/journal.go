package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"tradegate/pkg/executor"
)

// Writer persists execution records to a directory as JSON files (journal style).
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

var _ executor.Recorder = (*Writer)(nil)

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, seq: lastSeq(dir), nowFn: time.Now}
}

// lastSeq returns the highest sequence number already in dir so file names
// keep increasing across restarts.
func lastSeq(dir string) int {
	matches, _ := filepath.Glob(filepath.Join(dir, "exec_*.json"))
	last := 0
	for _, path := range matches {
		base := strings.TrimSuffix(filepath.Base(path), ".json")
		i := strings.LastIndexByte(base, '_')
		if i < 0 {
			continue
		}
		if n, err := strconv.Atoi(base[i+1:]); err == nil && n > last {
			last = n
		}
	}
	return last
}

// Dir reports the journal directory.
func (w *Writer) Dir() string { return w.dir }

// WriteExecution writes rec to a timestamped JSON file and returns its path.
func (w *Writer) WriteExecution(rec executor.ExecutionRecord) (string, error) {
	ts := rec.FinishedAt
	if ts.IsZero() {
		ts = w.nowFn()
	}
	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	name := fmt.Sprintf("exec_%s_%05d.json", ts.UTC().Format("20060102_150405"), seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("journal: encode %s: %w", rec.ID, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("journal: write %s: %w", path, err)
	}
	return path, nil
}

// RecordExecution implements executor.Recorder.
func (w *Writer) RecordExecution(ctx context.Context, rec executor.ExecutionRecord) error {
	_, err := w.WriteExecution(rec)
	return err
}

// ReadAll loads every execution record in the journal, oldest first by
// FinishedAt. Ties keep their file order.
func (w *Writer) ReadAll() ([]executor.ExecutionRecord, error) {
	matches, err := filepath.Glob(filepath.Join(w.dir, "exec_*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	out := make([]executor.ExecutionRecord, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("journal: read %s: %w", path, err)
		}
		var rec executor.ExecutionRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("journal: decode %s: %w", filepath.Base(path), err)
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.Before(out[j].FinishedAt)
	})
	return out, nil
}

// Find returns the records for symbol, newest last. An empty symbol matches all.
func (w *Writer) Find(symbol string) ([]executor.ExecutionRecord, error) {
	all, err := w.ReadAll()
	if err != nil || symbol == "" {
		return all, err
	}
	out := all[:0]
	for _, rec := range all {
		if strings.EqualFold(rec.Symbol, symbol) {
			out = append(out, rec)
		}
	}
	return out, nil
}
