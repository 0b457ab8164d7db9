package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"strings"
	"time"

	"nh-go/internal/config"
	"nh-go/internal/database"
	"nh-go/internal/fs"
	"nh-go/internal/nh"
	"nh-go/internal/nix"
	"nh-go/internal/sysuser"
	"nh-go/internal/ui"
)

// Options tune how an NHApp talks to the user.
type Options struct {
	Verbose bool
	// Stdin and Stdout default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	// PasswdPath defaults to /etc/passwd.
	PasswdPath string
}

// NHApp is the application layer between the CLI and CleanService.
// It constructs all dependencies from config, turns a scope into concrete
// paths for the invoking user, and manages the history DB lifecycle on Close.
type NHApp struct {
	cfg      *config.Config
	opts     Options
	fsys     *fs.OSFilesystem
	history  nh.History
	elevator *nix.Elevator
	logger   nh.Logger
	service  *nh.CleanService
	logFile  *os.File
}

// NewNHApp creates a fully wired NHApp from the given config.
// The caller must call Close when done.
func NewNHApp(cfg *config.Config, opts Options) (*NHApp, error) {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.PasswdPath == "" {
		opts.PasswdPath = sysuser.DefaultPasswdPath
	}

	matcher, err := nh.NewRootMatcher(rootPatterns(cfg.Clean.GCRootPatterns))
	if err != nil {
		return nil, fmt.Errorf("loading gcroot patterns: %w", err)
	}

	history, err := database.NewHistoryFromConfig(cfg.History)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	invocationID := time.Now().UTC().Format("20060102T150405Z")
	l, logFile, err := newLogger(cfg.LogDir, invocationID, opts.Verbose)
	if err != nil {
		history.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}
	logger.Debug("gcroot patterns loaded", "names", strings.Join(matcher.Names(), ","))
	if h, ok := history.(*database.SQLiteHistory); ok {
		logger.Debug("history opened", "path", h.Path())
	}

	fsys := fs.NewOSFilesystem()
	runner := nix.NewRunner(logger)
	svc := nh.NewCleanService(
		fsys,
		matcher,
		nix.NewStoreCollector(runner, cfg.Nix.GCCommand),
		ui.NewPromptConfirmer(opts.Stdin, opts.Stdout),
		ui.NewPresenter(opts.Stdout),
		history,
		logger,
		nh.RealClock{},
		nh.UUIDGenerator{},
	)

	return &NHApp{
		cfg:      cfg,
		opts:     opts,
		fsys:     fsys,
		history:  history,
		elevator: nix.NewElevator(runner, cfg.Nix.ElevateCommand),
		logger:   logger,
		service:  svc,
		logFile:  logFile,
	}, nil
}

func rootPatterns(configured []config.GCRootPattern) []nh.RootPattern {
	if len(configured) == 0 {
		return nh.DefaultRootPatterns()
	}
	patterns := make([]nh.RootPattern, len(configured))
	for i, p := range configured {
		patterns[i] = nh.RootPattern{Name: p.Name, Pattern: p.Pattern}
	}
	return patterns
}

// DefaultPolicy returns the retention policy from config.
func (a *NHApp) DefaultPolicy() nh.RetentionPolicy {
	return nh.RetentionPolicy{
		Keep:      a.cfg.Clean.Keep,
		KeepSince: a.cfg.Clean.KeepSince.Duration,
	}
}

// Resolve maps scope onto the directories to clean for the invoking user.
func (a *NHApp) Resolve(scope nh.Scope) (*nh.Resolution, error) {
	env, err := a.environment(scope)
	if err != nil {
		return nil, err
	}
	return nh.Resolve(scope, env, a.fsys, a.logger)
}

// environment describes the current process. The account list is only
// needed, and only read, for AllScope.
func (a *NHApp) environment(scope nh.Scope) (nh.Environment, error) {
	env := nh.Environment{
		EUID:         os.Geteuid(),
		XDGStateHome: os.Getenv("XDG_STATE_HOME"),
		UIDMin:       a.cfg.Clean.UIDMin,
		UIDMax:       a.cfg.Clean.UIDMax,
	}

	if u, err := user.Current(); err == nil {
		env.Username = u.Username
		env.Home = u.HomeDir
	} else {
		a.logger.Debug("looking up current user failed", "error", err)
		env.Username = os.Getenv("USER")
	}
	if env.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return env, fmt.Errorf("cannot determine home directory: %w", err)
		}
		env.Home = home
	}

	if _, ok := scope.(nh.AllScope); ok {
		users, err := sysuser.ReadPasswd(a.opts.PasswdPath)
		if err != nil {
			a.logger.Warn("listing local users failed, personal profiles are not scanned", "error", err)
		}
		env.Users = users
	}
	return env, nil
}

// Reexec runs the same invocation again under the elevation command and
// returns the exit code the caller should exit with.
func (a *NHApp) Reexec(ctx context.Context, args []string) (int, error) {
	a.logger.Info("re-executing with elevated privileges", "command", a.cfg.Nix.ElevateCommand)
	return a.elevator.Reexec(ctx, args)
}

// Clean plans and executes a clean over an already resolved scope.
func (a *NHApp) Clean(ctx context.Context, res *nh.Resolution, req nh.CleanRequest) (*nh.CleanResult, error) {
	a.logger.Info("clean started", "scope", req.Scope.Name(), "dry", req.Dry)
	result, err := a.service.Clean(ctx, res, req)
	if err != nil {
		a.logger.Error("clean finished with error", "error", err)
	}
	return result, err
}

// Generations lists the generations of a profile, newest first.
func (a *NHApp) Generations(profilePath string) ([]nh.GenerationInfo, error) {
	return a.service.ListGenerations(profilePath)
}

// History returns the most recent clean runs.
func (a *NHApp) History(limit int) ([]*nh.CleanRun, error) {
	return a.service.History(limit)
}

// Close closes the history database and the log file.
func (a *NHApp) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
