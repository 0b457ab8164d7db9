package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nh-go/internal/app"
	"nh-go/internal/config"
	"nh-go/internal/nh"

	"github.com/spf13/cobra"
)

const defaultSystemProfile = "/nix/var/nix/profiles/system"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when it does not exist.
func loadConfig() (*config.Config, map[string]string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults, nil
}

// newApp reads the config and creates an NHApp. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*app.NHApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewNHApp(cfg, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "nh",
	Short:        "Nix helper",
	SilenceUsage: true,
}

// clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old generations and GC roots, then collect store garbage",
}

var cleanAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Clean all profiles and GC roots on the system (elevates to root)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cmd, nh.AllScope{})
	},
}

var cleanUserCmd = &cobra.Command{
	Use:   "user",
	Short: "Clean the current user's profiles and GC roots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cmd, nh.UserScope{})
	},
}

var cleanProfileCmd = &cobra.Command{
	Use:   "profile PATH",
	Short: "Clean a single profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClean(cmd, nh.ProfileScope{Path: args[0]})
	},
}

// runClean builds a request from config and flags, elevates when the scope
// needs root, and runs the clean.
func runClean(cmd *cobra.Command, scope nh.Scope) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := cleanRequest(cmd, scope, a.DefaultPolicy())
	if err != nil {
		return err
	}

	res, err := a.Resolve(scope)
	if err != nil {
		return err
	}

	if res.NeedsElevation {
		code, err := a.Reexec(cmd.Context(), os.Args[1:])
		if err != nil {
			return err
		}
		a.Close()
		os.Exit(code)
	}

	_, err = a.Clean(cmd.Context(), res, req)
	return err
}

// cleanRequest applies command line flags on top of the configured policy.
func cleanRequest(cmd *cobra.Command, scope nh.Scope, policy nh.RetentionPolicy) (nh.CleanRequest, error) {
	flags := cmd.Flags()

	if flags.Changed("keep") {
		keep, _ := flags.GetUint("keep")
		policy.Keep = keep
	}
	if flags.Changed("keep-since") {
		raw, _ := flags.GetString("keep-since")
		d, err := config.ParseDuration(raw)
		if err != nil {
			return nh.CleanRequest{}, fmt.Errorf("--keep-since: %w", err)
		}
		policy.KeepSince = d
	}

	req := nh.CleanRequest{Scope: scope, Policy: policy}
	req.Dry, _ = flags.GetBool("dry")
	req.Ask, _ = flags.GetBool("ask")
	req.NoGC, _ = flags.GetBool("nogc")
	if flags.Lookup("nogcroots") != nil {
		req.NoGCRoots, _ = flags.GetBool("nogcroots")
	}
	return req, nil
}

func addCleanFlags(cmd *cobra.Command, gcroots bool) {
	cmd.Flags().UintP("keep", "k", 1, "At least keep this number of generations")
	cmd.Flags().StringP("keep-since", "K", "0h", "At least keep generations newer than this duration (e.g. 7d, 2w)")
	cmd.Flags().BoolP("dry", "n", false, "Only print actions, without performing them")
	cmd.Flags().BoolP("ask", "a", false, "Ask for confirmation before deleting")
	cmd.Flags().Bool("nogc", false, "Don't run nix store --gc")
	if gcroots {
		cmd.Flags().Bool("nogcroots", false, "Don't clean GC roots")
	}
}

var cleanHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "View past clean runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No clean history.")
			return nil
		}

		for _, r := range runs {
			finished := "-"
			if !r.FinishedAt.IsZero() {
				finished = r.FinishedAt.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s  %-7s  %-7s  %s  %s  removed:%d  %s\n",
				r.ID, r.Scope, r.Status,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), finished,
				r.RemovedCount, r.Parameters)
		}
		return nil
	},
}

// generations command
var generationsCmd = &cobra.Command{
	Use:   "generations [PROFILE]",
	Short: "List the generations of a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile := defaultSystemProfile
		if len(args) == 1 {
			profile = args[0]
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		gens, err := a.Generations(profile)
		if err != nil {
			return err
		}

		for _, g := range gens {
			marker := ""
			if g.Current {
				marker = "  (current)"
			}
			fmt.Printf("%6d  %s%s\n", g.Number, g.LastModified.Local().Format("2006-01-02 15:04:05"), marker)
		}
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, defaults, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Keep:         %d\n", cfg.Clean.Keep)
		fmt.Printf("Keep Since:   %s\n", cfg.Clean.KeepSince.Duration)
		fmt.Printf("UID Range:    %d-%d\n", cfg.Clean.UIDMin, cfg.Clean.UIDMax)
		fmt.Printf("History:      %s\n", cfg.History.Type)
		fmt.Printf("GC Command:   %v\n", cfg.Nix.GCCommand)
		fmt.Printf("Elevate With: %s\n", cfg.Nix.ElevateCommand)
		if len(cfg.Clean.GCRootPatterns) > 0 {
			fmt.Println("GC Root Patterns:")
			for _, p := range cfg.Clean.GCRootPatterns {
				fmt.Printf("  %-10s %s\n", p.Name, p.Pattern)
			}
		} else if m, err := nh.NewRootMatcher(nh.DefaultRootPatterns()); err == nil {
			fmt.Printf("GC Roots:     builtin (%s)\n", strings.Join(m.Names(), ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show debug logs")

	// clean command
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.AddCommand(cleanAllCmd)
	addCleanFlags(cleanAllCmd, true)
	cleanCmd.AddCommand(cleanUserCmd)
	addCleanFlags(cleanUserCmd, true)
	cleanCmd.AddCommand(cleanProfileCmd)
	addCleanFlags(cleanProfileCmd, false)
	cleanCmd.AddCommand(cleanHistoryCmd)
	cleanHistoryCmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to show")

	// generations command
	rootCmd.AddCommand(generationsCmd)

	// config command
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
}
