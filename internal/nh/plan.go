package nh

import (
	"context"
	"errors"
	"time"
)

// ErrProfilesSkipped is returned after a clean that had to skip at least one
// profile because it could not be enumerated or failed the consistency check.
var ErrProfilesSkipped = errors.New("one or more profiles were skipped")

// ProfilePlan holds the tagged generations of one profile.
type ProfilePlan struct {
	Profile     string
	Generations []TaggedGeneration
}

// ProfileFailure records a profile excluded from the plan.
type ProfileFailure struct {
	Profile string
	Err     error
}

// Plan is everything a clean would remove, computed before any deletion.
type Plan struct {
	Profiles []ProfilePlan
	Roots    []TaggedRoot
	Failures []ProfileFailure
}

// GenerationsToRemove counts generations tagged for removal.
func (p *Plan) GenerationsToRemove() int {
	n := 0
	for _, pp := range p.Profiles {
		for _, g := range pp.Generations {
			if g.ToBeRemoved {
				n++
			}
		}
	}
	return n
}

// RootsToRemove counts GC roots tagged for removal.
func (p *Plan) RootsToRemove() int {
	n := 0
	for _, r := range p.Roots {
		if r.ToBeRemoved {
			n++
		}
	}
	return n
}

// Empty reports whether the plan removes nothing.
func (p *Plan) Empty() bool {
	return p.GenerationsToRemove() == 0 && p.RootsToRemove() == 0
}

// RemovalKind distinguishes the two kinds of links a clean removes.
type RemovalKind string

const (
	KindGeneration RemovalKind = "generation"
	KindGCRoot     RemovalKind = "gcroot"
)

// Removal is one path the executor acted on.
type Removal struct {
	Kind RemovalKind
	Path string
	Err  error // nil when the path was removed
}

// CleanRequest carries the per-invocation options of a clean.
type CleanRequest struct {
	Scope     Scope
	Policy    RetentionPolicy
	Dry       bool
	Ask       bool
	NoGC      bool
	NoGCRoots bool
}

// CleanResult reports what a clean did.
type CleanResult struct {
	RunID            string
	Plan             *Plan
	Dry              bool
	Declined         bool
	Removed          []Removal
	Failed           []Removal
	GarbageCollected bool
}

// Presenter renders a plan and the progress of its execution.
type Presenter interface {
	ShowPlan(plan *Plan, dry bool)
	ShowRemoved(r Removal)
	ShowSummary(result *CleanResult)
}

// Confirmer asks the user a yes/no question. def is returned on empty input.
type Confirmer interface {
	Confirm(question string, def bool) (bool, error)
}

// StoreCollector runs the store-level garbage collector.
type StoreCollector interface {
	CollectGarbage(ctx context.Context) error
}

// CleanRun is one recorded clean invocation.
type CleanRun struct {
	ID           string
	Scope        string
	Parameters   string
	Status       string // "running", "success" or "error"
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
	RemovedCount int
}

// History persists clean runs and the paths they removed.
type History interface {
	StartRun(run *CleanRun) error
	RecordRemoval(runID string, kind RemovalKind, path string, at time.Time) error
	FinishRun(runID string, status string, at time.Time) error
	ListRuns(limit int) ([]*CleanRun, error)
	Close() error
}

// NopHistory records nothing.
type NopHistory struct{}

func (NopHistory) StartRun(*CleanRun) error                                   { return nil }
func (NopHistory) RecordRemoval(string, RemovalKind, string, time.Time) error { return nil }
func (NopHistory) FinishRun(string, string, time.Time) error                  { return nil }
func (NopHistory) ListRuns(int) ([]*CleanRun, error)                          { return nil, nil }
func (NopHistory) Close() error                                               { return nil }
