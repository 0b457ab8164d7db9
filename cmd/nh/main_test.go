package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"

	"nh-go/internal/nh"
)

func newCleanTestCmd(gcroots bool) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	addCleanFlags(cmd, gcroots)
	return cmd
}

func TestCleanRequest(t *testing.T) {
	configured := nh.RetentionPolicy{Keep: 3, KeepSince: 48 * time.Hour}

	t.Run("config applies without flags", func(t *testing.T) {
		cmd := newCleanTestCmd(true)
		if err := cmd.ParseFlags(nil); err != nil {
			t.Fatal(err)
		}

		req, err := cleanRequest(cmd, nh.UserScope{}, configured)
		if err != nil {
			t.Fatalf("cleanRequest() error = %v", err)
		}
		if req.Policy != configured {
			t.Errorf("Policy = %+v, want %+v", req.Policy, configured)
		}
		if req.Dry || req.Ask || req.NoGC || req.NoGCRoots {
			t.Errorf("boolean options set without flags: %+v", req)
		}
	})

	t.Run("flags override config", func(t *testing.T) {
		cmd := newCleanTestCmd(true)
		if err := cmd.ParseFlags([]string{"-k", "5", "-K", "2w", "-n", "-a", "--nogc", "--nogcroots"}); err != nil {
			t.Fatal(err)
		}

		req, err := cleanRequest(cmd, nh.AllScope{}, configured)
		if err != nil {
			t.Fatalf("cleanRequest() error = %v", err)
		}
		if req.Policy.Keep != 5 || req.Policy.KeepSince != 14*24*time.Hour {
			t.Errorf("Policy = %+v, want keep 5 since 2w", req.Policy)
		}
		if !req.Dry || !req.Ask || !req.NoGC || !req.NoGCRoots {
			t.Errorf("boolean options not applied: %+v", req)
		}
	})

	t.Run("keep zero is honoured", func(t *testing.T) {
		cmd := newCleanTestCmd(false)
		if err := cmd.ParseFlags([]string{"--keep", "0"}); err != nil {
			t.Fatal(err)
		}
		req, err := cleanRequest(cmd, nh.ProfileScope{Path: "/p"}, configured)
		if err != nil {
			t.Fatalf("cleanRequest() error = %v", err)
		}
		if req.Policy.Keep != 0 {
			t.Errorf("Keep = %d, want 0", req.Policy.Keep)
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		cmd := newCleanTestCmd(true)
		if err := cmd.ParseFlags([]string{"-K", "soon"}); err != nil {
			t.Fatal(err)
		}
		if _, err := cleanRequest(cmd, nh.UserScope{}, configured); err == nil {
			t.Error("cleanRequest() expected error for bad --keep-since")
		}
	})
}
