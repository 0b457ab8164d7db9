package nh

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"time"
)

var generationLinkPattern = regexp.MustCompile(`^(.*)-(\d+)-link$`)

// ParseGenerationLink classifies a single path segment. It reports ok only for
// names of the form <base>-<digits>-link, where base may itself contain hyphens.
// Anything else is a filter miss rather than an error.
func ParseGenerationLink(name string) (base string, number uint64, ok bool) {
	m := generationLinkPattern.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// GenerationLinkName is the inverse of ParseGenerationLink.
func GenerationLinkName(base string, number uint64) string {
	return fmt.Sprintf("%s-%d-link", base, number)
}

// Generation is one numbered generation link of a profile.
type Generation struct {
	Number       uint64
	LastModified time.Time // mtime of the link itself, not of its store path
	Path         string
}

// Generations holds a profile's generations in ascending numeric order.
// Callers that need newest-first must ask for it explicitly.
type Generations []Generation

// NewGenerations sorts gens by number, ascending.
func NewGenerations(gens []Generation) Generations {
	sorted := slices.Clone(gens)
	slices.SortFunc(sorted, func(a, b Generation) int {
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		}
		return 0
	})
	return Generations(sorted)
}

// Newest returns the generation with the highest number.
func (g Generations) Newest() (Generation, bool) {
	if len(g) == 0 {
		return Generation{}, false
	}
	return g[len(g)-1], true
}

// Descending returns a newest-first copy.
func (g Generations) Descending() []Generation {
	out := slices.Clone([]Generation(g))
	slices.Reverse(out)
	return out
}
