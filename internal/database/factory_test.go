package database

import (
	"os"
	"path/filepath"
	"testing"

	"nh-go/internal/config"
	"nh-go/internal/nh"
)

func TestNewHistoryFromConfig(t *testing.T) {
	t.Run("memory history", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, ok := got.(*SQLiteHistory); !ok {
			t.Errorf("NewHistoryFromConfig() = %T, want *SQLiteHistory", got)
		}
	})

	t.Run("sqlite history creates data dir", func(t *testing.T) {
		dataDir := filepath.Join(t.TempDir(), "nested", "db")
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "sqlite", DataDir: dataDir})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		defer got.Close()

		if _, err := os.Stat(filepath.Join(dataDir, "history.db")); err != nil {
			t.Errorf("history.db not created: %v", err)
		}
	})

	t.Run("sqlite history without data_dir", func(t *testing.T) {
		_, err := NewHistoryFromConfig(config.HistoryConfig{Type: "sqlite"})
		if err == nil {
			t.Error("NewHistoryFromConfig() expected error for missing data_dir")
		}
	})

	t.Run("none disables history", func(t *testing.T) {
		got, err := NewHistoryFromConfig(config.HistoryConfig{Type: "none"})
		if err != nil {
			t.Fatalf("NewHistoryFromConfig() unexpected error: %v", err)
		}
		if _, ok := got.(nh.NopHistory); !ok {
			t.Errorf("NewHistoryFromConfig() = %T, want nh.NopHistory", got)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := NewHistoryFromConfig(config.HistoryConfig{Type: "postgres"})
		if err == nil {
			t.Error("NewHistoryFromConfig() expected error for unknown type")
		}
	})
}
