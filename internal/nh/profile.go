package nh

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
)

// ErrInconsistentProfile is returned when a profile symlink does not point at
// its highest-numbered generation.
var ErrInconsistentProfile = errors.New("profile does not point at its newest generation")

// EnumerateGenerations lists the generations belonging to profilePath by scanning
// the profile's parent directory for <name>-<N>-link entries. The modification
// time recorded for each generation is that of the link itself.
//
// An unreadable directory or entry is an error: the result feeds deletion
// decisions, so it must be complete.
func EnumerateGenerations(fsys Filesystem, profilePath string) (Generations, error) {
	dir := filepath.Dir(profilePath)
	name := filepath.Base(profilePath)

	pattern, err := regexp.Compile("^" + regexp.QuoteMeta(name) + `-(\d+)-link$`)
	if err != nil {
		return nil, fmt.Errorf("compiling generation pattern for %s: %w", profilePath, err)
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profile directory %s: %w", dir, err)
	}

	var gens []Generation
	for _, entry := range entries {
		m := pattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		number, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := fsys.Lstat(path)
		if err != nil {
			return nil, fmt.Errorf("reading generation metadata %s: %w", path, err)
		}

		gens = append(gens, Generation{
			Number:       number,
			LastModified: info.ModTime(),
			Path:         path,
		})
	}

	return NewGenerations(gens), nil
}

// DiscoverProfiles scans dir (non-recursively) for profile candidates. An entry
// qualifies when it is a symlink whose target's filename is a generation link;
// the candidate profile is dir joined with that link's base name.
//
// Scanning is best-effort: a directory that cannot be read yields no profiles
// and a warning, so one broken per-user directory does not stop a system-wide clean.
func DiscoverProfiles(fsys Filesystem, logger Logger, dir string) []string {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("profile directory does not exist", "dir", dir)
		} else {
			logger.Warn("cannot read profile directory", "dir", dir, "error", err)
		}
		return nil
	}

	seen := make(map[string]bool)
	var profiles []string
	for _, entry := range entries {
		if entry.Type()&fs.ModeSymlink == 0 {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		target, err := fsys.Readlink(path)
		if err != nil {
			logger.Warn("cannot read profile link", "path", path, "error", err)
			continue
		}
		base, _, ok := ParseGenerationLink(filepath.Base(target))
		if !ok {
			continue
		}
		candidate := filepath.Join(dir, base)
		if !seen[candidate] {
			seen[candidate] = true
			profiles = append(profiles, candidate)
		}
	}

	slices.Sort(profiles)
	return profiles
}

// CheckProfileConsistency verifies that the profile symlink points at the
// generation with the highest number. Cleanup of a profile whose current pointer
// was changed out of band must not proceed.
func CheckProfileConsistency(fsys Filesystem, profilePath string, gens Generations) error {
	newest, ok := gens.Newest()
	if !ok {
		return fmt.Errorf("%w: %s has no generations", ErrInconsistentProfile, profilePath)
	}

	target, err := fsys.Readlink(profilePath)
	if err != nil {
		return fmt.Errorf("reading profile link %s: %w", profilePath, err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(profilePath), target)
	}

	if filepath.Clean(target) != filepath.Clean(newest.Path) {
		return fmt.Errorf("%w: %s points at %s, expected %s",
			ErrInconsistentProfile, profilePath, target, newest.Path)
	}
	return nil
}

// CurrentGeneration returns the generation number the profile symlink targets.
func CurrentGeneration(fsys Filesystem, profilePath string) (uint64, bool) {
	target, err := fsys.Readlink(profilePath)
	if err != nil {
		return 0, false
	}
	_, n, ok := ParseGenerationLink(filepath.Base(target))
	return n, ok
}
