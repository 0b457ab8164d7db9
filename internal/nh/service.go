package nh

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// CleanService computes and executes clean plans. It is agnostic of the scope
// that produced the paths it is given.
type CleanService struct {
	fsys      Filesystem
	matcher   *RootMatcher
	store     StoreCollector
	confirmer Confirmer
	presenter Presenter
	history   History
	logger    Logger
	clock     Clock
	idgen     IDGenerator
}

// NewCleanService creates a CleanService with the provided dependencies.
func NewCleanService(fsys Filesystem, matcher *RootMatcher, store StoreCollector, confirmer Confirmer, presenter Presenter, history History, logger Logger, clock Clock, idgen IDGenerator) *CleanService {
	return &CleanService{
		fsys:      fsys,
		matcher:   matcher,
		store:     store,
		confirmer: confirmer,
		presenter: presenter,
		history:   history,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
	}
}

// BuildPlan enumerates and tags every profile and GC root in res. Profiles are
// handled independently: one that fails is recorded in Plan.Failures and the
// rest are still planned.
func (s *CleanService) BuildPlan(res *Resolution, req CleanRequest) *Plan {
	now := s.clock.Now()
	plan := &Plan{}

	for _, profile := range s.profiles(res) {
		gens, err := EnumerateGenerations(s.fsys, profile)
		if err == nil {
			err = CheckProfileConsistency(s.fsys, profile, gens)
		}
		if err != nil {
			s.logger.Error("skipping profile", "profile", profile, "error", err)
			plan.Failures = append(plan.Failures, ProfileFailure{Profile: profile, Err: err})
			continue
		}

		plan.Profiles = append(plan.Profiles, ProfilePlan{
			Profile:     profile,
			Generations: Evaluate(gens, req.Policy, now, s.logger),
		})
	}

	if !req.NoGCRoots && len(res.GCRootDirs) > 0 {
		plan.Roots = ScanGCRoots(s.fsys, s.matcher, res.GCRootDirs, req.Policy.KeepSince, now, s.logger)
	}

	return plan
}

func (s *CleanService) profiles(res *Resolution) []string {
	var profiles []string
	for _, dir := range res.ProfileDirs {
		profiles = append(profiles, DiscoverProfiles(s.fsys, s.logger, dir)...)
	}
	profiles = append(profiles, res.Profiles...)
	return dedupe(profiles)
}

// Clean plans, presents and, unless dry or declined, executes a clean.
//
// The plan is always presented before anything is removed. GC roots go first,
// then generations, then the store garbage collector. Failures to remove
// individual paths are logged and do not stop the batch; a failing garbage
// collector is returned as an error. Skipped profiles make the result
// ErrProfilesSkipped once everything else has run.
func (s *CleanService) Clean(ctx context.Context, res *Resolution, req CleanRequest) (*CleanResult, error) {
	plan := s.BuildPlan(res, req)
	result := &CleanResult{Plan: plan, Dry: req.Dry}

	s.presenter.ShowPlan(plan, req.Dry)

	if req.Dry {
		s.presenter.ShowSummary(result)
		return result, skippedError(plan)
	}

	// Nothing to confirm; the store GC still runs.
	if req.Ask && !plan.Empty() {
		ok, err := s.confirmer.Confirm("Confirm the cleanup plan?", false)
		if err != nil {
			return result, fmt.Errorf("asking for confirmation: %w", err)
		}
		if !ok {
			s.logger.Info("cleanup declined")
			result.Declined = true
			return result, nil
		}
	}

	result.RunID = s.idgen.New()
	s.startRun(result.RunID, req)

	for _, root := range plan.Roots {
		if root.ToBeRemoved {
			s.removeRoot(result, root)
		}
	}
	for _, pp := range plan.Profiles {
		for _, g := range pp.Generations {
			if g.ToBeRemoved {
				s.remove(result, KindGeneration, g.Path)
			}
		}
	}

	var gcErr error
	if req.NoGC {
		s.logger.Debug("skipping store garbage collection")
	} else if err := s.store.CollectGarbage(ctx); err != nil {
		gcErr = fmt.Errorf("collecting store garbage: %w", err)
	} else {
		result.GarbageCollected = true
	}

	status := "success"
	if gcErr != nil || len(plan.Failures) > 0 {
		status = "error"
	}
	s.finishRun(result.RunID, status)

	s.presenter.ShowSummary(result)

	if gcErr != nil {
		return result, gcErr
	}
	return result, skippedError(plan)
}

// removeRoot removes the target a GC root points at, e.g. a ./result link,
// then the now dangling root link itself. Nix prunes dangling roots on its own,
// so failing to remove the root link is not reported.
func (s *CleanService) removeRoot(result *CleanResult, root TaggedRoot) {
	if !s.remove(result, KindGCRoot, root.Target) {
		return
	}
	if root.Root == root.Target {
		return
	}
	if err := s.fsys.Remove(root.Root); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("leaving dangling gcroot link", "root", root.Root, "error", err)
	}
}

// remove unlinks a single path. A path that vanished since planning is
// reported but does not count as removed.
func (s *CleanService) remove(result *CleanResult, kind RemovalKind, path string) bool {
	r := Removal{Kind: kind, Path: path}
	if err := s.fsys.Remove(path); err != nil {
		r.Err = err
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("already removed", "kind", string(kind), "path", path)
		} else {
			s.logger.Warn("failed to remove", "kind", string(kind), "path", path, "error", err)
		}
		result.Failed = append(result.Failed, r)
		return false
	}

	s.logger.Info("removed", "kind", string(kind), "path", path)
	result.Removed = append(result.Removed, r)
	s.presenter.ShowRemoved(r)
	if err := s.history.RecordRemoval(result.RunID, kind, path, s.clock.Now()); err != nil {
		s.logger.Warn("recording removal in history failed", "path", path, "error", err)
	}
	return true
}

func (s *CleanService) startRun(runID string, req CleanRequest) {
	run := &CleanRun{
		ID:         runID,
		Scope:      req.Scope.Name(),
		Parameters: describeRequest(req),
		Status:     "running",
		StartedAt:  s.clock.Now(),
	}
	if err := s.history.StartRun(run); err != nil {
		s.logger.Warn("recording clean run in history failed", "run", runID, "error", err)
	}
}

func (s *CleanService) finishRun(runID, status string) {
	if err := s.history.FinishRun(runID, status, s.clock.Now()); err != nil {
		s.logger.Warn("finishing clean run in history failed", "run", runID, "error", err)
	}
}

// describeRequest renders the options of a request for the history log.
func describeRequest(req CleanRequest) string {
	parts := []string{
		fmt.Sprintf("keep=%d", req.Policy.Keep),
		fmt.Sprintf("keep-since=%s", req.Policy.KeepSince),
	}
	if p, ok := req.Scope.(ProfileScope); ok {
		parts = append(parts, "profile="+p.Path)
	}
	if req.Ask {
		parts = append(parts, "ask")
	}
	if req.NoGC {
		parts = append(parts, "nogc")
	}
	if req.NoGCRoots {
		parts = append(parts, "nogcroots")
	}
	return strings.Join(parts, " ")
}

func skippedError(plan *Plan) error {
	if len(plan.Failures) == 0 {
		return nil
	}
	names := make([]string, len(plan.Failures))
	for i, f := range plan.Failures {
		names[i] = f.Profile
	}
	return fmt.Errorf("%w: %s", ErrProfilesSkipped, strings.Join(names, ", "))
}

// GenerationInfo describes one generation for listing.
type GenerationInfo struct {
	Generation
	Current bool
}

// ListGenerations returns the generations of a profile, newest first.
func (s *CleanService) ListGenerations(profilePath string) ([]GenerationInfo, error) {
	abs, err := filepath.Abs(profilePath)
	if err != nil {
		return nil, fmt.Errorf("resolving profile path: %w", err)
	}

	gens, err := EnumerateGenerations(s.fsys, abs)
	if err != nil {
		return nil, err
	}
	if len(gens) == 0 {
		return nil, fmt.Errorf("no generations found for %s", abs)
	}

	current, hasCurrent := CurrentGeneration(s.fsys, abs)
	infos := make([]GenerationInfo, 0, len(gens))
	for _, g := range gens.Descending() {
		infos = append(infos, GenerationInfo{
			Generation: g,
			Current:    hasCurrent && g.Number == current,
		})
	}
	return infos, nil
}

// History returns the most recent clean runs, newest first.
func (s *CleanService) History(limit int) ([]*CleanRun, error) {
	runs, err := s.history.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing clean runs: %w", err)
	}
	return runs, nil
}
