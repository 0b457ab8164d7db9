package nh

import "time"

// RetentionPolicy decides which generations survive a clean.
// Keep is the number of newest generations always kept; KeepSince keeps
// anything younger than the window. Zero values disable the respective rule.
type RetentionPolicy struct {
	Keep      uint
	KeepSince time.Duration
}

// DefaultRetentionPolicy keeps only the newest generation.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{Keep: 1}
}

// TaggedGeneration is a generation with its computed removal decision.
type TaggedGeneration struct {
	Generation
	ToBeRemoved bool
}

// Evaluate tags each generation for keeping or removal. The result preserves
// the ascending order of gens.
//
// Everything starts tagged for removal. The age pass then keeps anything no
// older than KeepSince; a modification time in the future leaves the tag as it
// was and logs a warning. The count pass finally keeps the Keep newest
// generations regardless of age. Neither pass can revoke a keep.
func Evaluate(gens Generations, policy RetentionPolicy, now time.Time, logger Logger) []TaggedGeneration {
	tagged := make([]TaggedGeneration, len(gens))
	for i, g := range gens {
		tagged[i] = TaggedGeneration{Generation: g, ToBeRemoved: true}
	}

	for i := range tagged {
		if keep, ok := withinKeepWindow(tagged[i].LastModified, now, policy.KeepSince); !ok {
			logger.Warn("generation modified in the future, leaving tag unchanged",
				"path", tagged[i].Path, "modified", tagged[i].LastModified)
		} else if keep {
			tagged[i].ToBeRemoved = false
		}
	}

	kept := uint(0)
	for i := len(tagged) - 1; i >= 0 && kept < policy.Keep; i-- {
		tagged[i].ToBeRemoved = false
		kept++
	}

	return tagged
}

// withinKeepWindow reports whether modified falls inside the keep window ending
// at now. ok is false when the age cannot be computed because modified lies in
// the future; callers must then leave their decision unchanged.
func withinKeepWindow(modified, now time.Time, keepSince time.Duration) (keep bool, ok bool) {
	age := now.Sub(modified)
	if age < 0 {
		return false, false
	}
	if keepSince <= 0 {
		return false, true
	}
	return age <= keepSince, true
}
