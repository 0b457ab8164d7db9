package nh

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
)

// ErrRootForbidden is returned when a per-user clean is attempted as root.
var ErrRootForbidden = errors.New("refusing to clean user profiles as root")

// DefaultNixStateDir is where Nix keeps profiles and GC roots.
const DefaultNixStateDir = "/nix/var/nix"

// Scope selects what a clean operates on. It is one of AllScope, UserScope
// or ProfileScope.
type Scope interface {
	// Name identifies the scope in logs and history.
	Name() string
	isScope()
}

// AllScope cleans every profile on the system, as root.
type AllScope struct{}

// UserScope cleans the invoking user's profiles. It must not run as root.
type UserScope struct{}

// ProfileScope cleans one explicitly named profile and no GC roots.
type ProfileScope struct {
	Path string
}

func (AllScope) Name() string     { return "all" }
func (UserScope) Name() string    { return "user" }
func (ProfileScope) Name() string { return "profile" }

func (AllScope) isScope()     {}
func (UserScope) isScope()    {}
func (ProfileScope) isScope() {}

// UserAccount is a local account considered by AllScope.
type UserAccount struct {
	Name string
	UID  uint32
	Home string
}

// Environment describes the invoking process and the host it runs on.
type Environment struct {
	EUID         int
	Username     string
	Home         string
	XDGStateHome string // empty means $Home/.local/state
	NixStateDir  string // empty means DefaultNixStateDir
	Users        []UserAccount
	UIDMin       uint32
	UIDMax       uint32
}

func (e Environment) nixStateDir() string {
	if e.NixStateDir != "" {
		return e.NixStateDir
	}
	return DefaultNixStateDir
}

func (e Environment) profilesDir() string {
	return filepath.Join(e.nixStateDir(), "profiles")
}

func (e Environment) gcrootsDir() string {
	return filepath.Join(e.nixStateDir(), "gcroots")
}

// Resolution is a scope turned into concrete paths.
type Resolution struct {
	// ProfileDirs are scanned with DiscoverProfiles.
	ProfileDirs []string
	// Profiles are cleaned as given.
	Profiles []string
	// GCRootDirs are walked with ScanGCRoots.
	GCRootDirs []string
	// NeedsElevation is set when the scope requires root and the process is not.
	NeedsElevation bool
}

// Resolve maps a scope onto the directories to scan. The per-user profile
// container is listed through fsys; failure to list it only loses those
// directories.
func Resolve(scope Scope, env Environment, fsys Filesystem, logger Logger) (*Resolution, error) {
	switch s := scope.(type) {
	case AllScope:
		return resolveAll(env, fsys, logger), nil
	case UserScope:
		return resolveUser(env)
	case ProfileScope:
		if s.Path == "" {
			return nil, fmt.Errorf("profile path is required")
		}
		abs, err := filepath.Abs(s.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving profile path: %w", err)
		}
		return &Resolution{Profiles: []string{abs}}, nil
	default:
		return nil, fmt.Errorf("unknown clean scope %T", scope)
	}
}

func resolveAll(env Environment, fsys Filesystem, logger Logger) *Resolution {
	res := &Resolution{NeedsElevation: env.EUID != 0}

	profiles := env.profilesDir()
	res.ProfileDirs = append(res.ProfileDirs, profiles)

	perUser := filepath.Join(profiles, "per-user")
	entries, err := fsys.ReadDir(perUser)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("cannot list per-user profiles", "dir", perUser, "error", err)
		}
	}
	for _, entry := range entries {
		if entry.IsDir() {
			res.ProfileDirs = append(res.ProfileDirs, filepath.Join(perUser, entry.Name()))
		}
	}

	for _, u := range env.Users {
		if u.UID != 0 && (u.UID < env.UIDMin || u.UID > env.UIDMax) {
			continue
		}
		if u.Home == "" {
			continue
		}
		res.ProfileDirs = append(res.ProfileDirs, filepath.Join(u.Home, ".local", "state", "nix", "profiles"))
	}
	res.ProfileDirs = dedupe(res.ProfileDirs)

	gcroots := env.gcrootsDir()
	res.GCRootDirs = []string{
		filepath.Join(gcroots, "auto"),
		filepath.Join(gcroots, "per-user"),
	}
	return res
}

func resolveUser(env Environment) (*Resolution, error) {
	if env.EUID == 0 {
		return nil, ErrRootForbidden
	}
	if env.Username == "" {
		return nil, fmt.Errorf("cannot determine current user")
	}

	stateHome := env.XDGStateHome
	if stateHome == "" {
		if env.Home == "" {
			return nil, fmt.Errorf("cannot determine home directory for %s", env.Username)
		}
		stateHome = filepath.Join(env.Home, ".local", "state")
	}

	return &Resolution{
		ProfileDirs: dedupe([]string{
			filepath.Join(stateHome, "nix", "profiles"),
			filepath.Join(env.profilesDir(), "per-user", env.Username),
		}),
		GCRootDirs: []string{filepath.Join(env.gcrootsDir(), "per-user", env.Username)},
	}, nil
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return slices.Clip(out)
}
