package testutil

import (
	"context"
	"fmt"
	"io/fs"
	"sync"

	"nh-go/internal/nh"
)

// ScriptedConfirmer answers confirmations from a fixed script. Once the
// script is exhausted it answers false.
type ScriptedConfirmer struct {
	Answers   []bool
	Err       error
	Questions []string
}

func (c *ScriptedConfirmer) Confirm(question string, def bool) (bool, error) {
	c.Questions = append(c.Questions, question)
	if c.Err != nil {
		return false, c.Err
	}
	if len(c.Answers) == 0 {
		return false, nil
	}
	answer := c.Answers[0]
	c.Answers = c.Answers[1:]
	return answer, nil
}

// RecordingStore counts garbage collector runs and fails with Err when set.
type RecordingStore struct {
	Calls int
	Err   error
}

func (s *RecordingStore) CollectGarbage(context.Context) error {
	s.Calls++
	return s.Err
}

// RecordingPresenter keeps everything it is asked to show.
type RecordingPresenter struct {
	Plans     []*nh.Plan
	DryFlags  []bool
	Removed   []nh.Removal
	Summaries []*nh.CleanResult
}

func (p *RecordingPresenter) ShowPlan(plan *nh.Plan, dry bool) {
	p.Plans = append(p.Plans, plan)
	p.DryFlags = append(p.DryFlags, dry)
}

func (p *RecordingPresenter) ShowRemoved(r nh.Removal) {
	p.Removed = append(p.Removed, r)
}

func (p *RecordingPresenter) ShowSummary(result *nh.CleanResult) {
	p.Summaries = append(p.Summaries, result)
}

// FaultyFS wraps a real nh.Filesystem, denying access to or failing removal
// of selected paths, and records every removal attempt.
type FaultyFS struct {
	nh.Filesystem

	mu           sync.Mutex
	DenyAccess   map[string]bool
	RemoveErrors map[string]error
	Removed      []string
}

// NewFaultyFS wraps fsys with no faults configured.
func NewFaultyFS(fsys nh.Filesystem) *FaultyFS {
	return &FaultyFS{
		Filesystem:   fsys,
		DenyAccess:   map[string]bool{},
		RemoveErrors: map[string]error{},
	}
}

func (f *FaultyFS) Access(path string) error {
	if f.DenyAccess[path] {
		return &fs.PathError{Op: "access", Path: path, Err: fs.ErrPermission}
	}
	return f.Filesystem.Access(path)
}

func (f *FaultyFS) Remove(path string) error {
	f.mu.Lock()
	f.Removed = append(f.Removed, path)
	err := f.RemoveErrors[path]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Filesystem.Remove(path)
}

// LogEntry is one call captured by RecordingLogger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []any
}

// RecordingLogger captures log calls for assertions.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

func (l *RecordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *RecordingLogger) Debug(msg string, args ...any) { l.record("DEBUG", msg, args) }
func (l *RecordingLogger) Info(msg string, args ...any)  { l.record("INFO", msg, args) }
func (l *RecordingLogger) Warn(msg string, args ...any)  { l.record("WARN", msg, args) }
func (l *RecordingLogger) Error(msg string, args ...any) { l.record("ERROR", msg, args) }

// Count returns how many entries were logged at level.
func (l *RecordingLogger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Has reports whether msg was logged at level.
func (l *RecordingLogger) Has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}

// String renders the captured entries for failure messages.
func (l *RecordingLogger) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := ""
	for _, e := range l.Entries {
		s += fmt.Sprintf("%s %s %v\n", e.Level, e.Msg, e.Args)
	}
	return s
}

var (
	_ nh.Confirmer      = (*ScriptedConfirmer)(nil)
	_ nh.StoreCollector = (*RecordingStore)(nil)
	_ nh.Presenter      = (*RecordingPresenter)(nil)
	_ nh.Filesystem     = (*FaultyFS)(nil)
	_ nh.Logger         = (*RecordingLogger)(nil)
)
