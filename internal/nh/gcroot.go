package nh

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// RootPattern names a class of GC-root targets that are safe to remove
// automatically. Pattern is a regular expression matched against the
// root's resolved target path.
type RootPattern struct {
	Name    string
	Pattern string
}

// DefaultRootPatterns covers nix-direnv caches and nix build result links.
func DefaultRootPatterns() []RootPattern {
	return []RootPattern{
		{Name: "direnv", Pattern: `/\.direnv/`},
		{Name: "result", Pattern: `/result(-[^/]*)?$`},
	}
}

type compiledRootPattern struct {
	name string
	re   *regexp.Regexp
}

// RootMatcher decides which GC roots are eligible for removal. A target that
// matches none of its patterns is never removed.
type RootMatcher struct {
	patterns []compiledRootPattern
}

// NewRootMatcher compiles the given patterns. Entries with an empty pattern are
// skipped; an invalid expression is an error.
func NewRootMatcher(patterns []RootPattern) (*RootMatcher, error) {
	var compiled []compiledRootPattern
	for _, p := range patterns {
		raw := strings.TrimSpace(p.Pattern)
		if raw == "" {
			continue
		}
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling gcroot pattern %q: %w", p.Name, err)
		}
		name := p.Name
		if name == "" {
			name = raw
		}
		compiled = append(compiled, compiledRootPattern{name: name, re: re})
	}
	return &RootMatcher{patterns: compiled}, nil
}

// Match returns the name of the first pattern that matches target.
func (m *RootMatcher) Match(target string) (string, bool) {
	normalized := filepath.ToSlash(target)
	for _, p := range m.patterns {
		if p.re.MatchString(normalized) {
			return p.name, true
		}
	}
	return "", false
}

// Names lists the pattern names in evaluation order.
func (m *RootMatcher) Names() []string {
	names := make([]string, len(m.patterns))
	for i, p := range m.patterns {
		names[i] = p.name
	}
	return names
}

// TaggedRoot is a GC root whose target matched a removal pattern.
type TaggedRoot struct {
	Root         string // the link inside the gcroots directory
	Target       string // the root's target, read one level deep
	Pattern      string
	LastModified time.Time // mtime of the target itself
	ToBeRemoved  bool
}

// ScanGCRoots walks each directory in dirs and returns the GC roots whose
// targets match the matcher, tagged by age. Roots that point at nothing, do not
// match, or are not both readable and writable are skipped. Only the first root
// seen for a given target is reported. The result is sorted by target.
func ScanGCRoots(fsys Filesystem, matcher *RootMatcher, dirs []string, keepSince time.Duration, now time.Time, logger Logger) []TaggedRoot {
	byTarget := make(map[string]TaggedRoot)

	for _, dir := range dirs {
		err := fsys.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == dir && errors.Is(err, fs.ErrNotExist) {
					logger.Debug("gcroots directory does not exist", "dir", dir)
				} else {
					logger.Warn("cannot read gcroots entry", "path", path, "error", err)
				}
				return nil
			}
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}

			root, ok := inspectRoot(fsys, matcher, path, keepSince, now, logger)
			if !ok {
				return nil
			}
			if _, dup := byTarget[root.Target]; !dup {
				byTarget[root.Target] = root
			}
			return nil
		})
		if err != nil {
			logger.Warn("walking gcroots directory failed", "dir", dir, "error", err)
		}
	}

	roots := make([]TaggedRoot, 0, len(byTarget))
	for _, r := range byTarget {
		roots = append(roots, r)
	}
	slices.SortFunc(roots, func(a, b TaggedRoot) int {
		return strings.Compare(a.Target, b.Target)
	})
	return roots
}

func inspectRoot(fsys Filesystem, matcher *RootMatcher, path string, keepSince time.Duration, now time.Time, logger Logger) (TaggedRoot, bool) {
	target, err := fsys.Readlink(path)
	if err != nil {
		logger.Warn("cannot read gcroot link", "path", path, "error", err)
		return TaggedRoot{}, false
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}

	pattern, ok := matcher.Match(target)
	if !ok {
		logger.Debug("gcroot does not match any pattern", "root", path, "target", target)
		return TaggedRoot{}, false
	}

	info, err := fsys.Lstat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("gcroot target does not exist", "root", path, "target", target)
		} else {
			logger.Warn("cannot stat gcroot target", "root", path, "target", target, "error", err)
		}
		return TaggedRoot{}, false
	}

	if err := fsys.Access(target); err != nil {
		logger.Warn("gcroot target is not accessible", "root", path, "target", target, "error", err)
		return TaggedRoot{}, false
	}

	root := TaggedRoot{
		Root:         path,
		Target:       target,
		Pattern:      pattern,
		LastModified: info.ModTime(),
		ToBeRemoved:  true,
	}
	if keep, ok := withinKeepWindow(info.ModTime(), now, keepSince); !ok {
		logger.Warn("gcroot target modified in the future, leaving tag unchanged",
			"target", target, "modified", info.ModTime())
	} else if keep {
		root.ToBeRemoved = false
	}
	return root, true
}
